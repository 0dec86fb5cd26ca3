package link

// FakeLink is a test double whose link comes up after a scripted number of
// polls.
type FakeLink struct {
	// UpAfter is the number of IsUp calls that report down before the link
	// comes up. Negative means never.
	UpAfter int

	// IP is reported by Info once the link is up.
	IP string

	// BeginCalls counts calls to Begin.
	BeginCalls int

	// Polls counts calls to IsUp.
	Polls int
}

// NewFakeLink creates a FakeLink that is up after upAfter polls.
func NewFakeLink(upAfter int) *FakeLink {
	return &FakeLink{UpAfter: upAfter, IP: "192.168.1.50"}
}

// Begin records the call.
func (f *FakeLink) Begin() {
	f.BeginCalls++
}

// IsUp consumes one poll.
func (f *FakeLink) IsUp() bool {
	f.Polls++
	return f.up()
}

// Info reports the scripted link without consuming a poll.
func (f *FakeLink) Info() Info {
	info := Info{Interface: "fake0", Up: f.up()}
	if info.Up {
		info.IP = f.IP
	}
	return info
}

func (f *FakeLink) up() bool {
	return f.UpAfter >= 0 && f.Polls > f.UpAfter
}
