package mqtt

// FakeTransport is a scripted Transport for tests.
type FakeTransport struct {
	// ConnectResults scripts successive Connect results. Once exhausted,
	// Connect succeeds.
	ConnectResults []bool

	// SubscribeResults scripts successive Subscribe results. Once exhausted,
	// Subscribe succeeds.
	SubscribeResults []bool

	// PublishFails makes every Publish return false.
	PublishFails bool

	// Connected controls the return value of IsConnected. A successful
	// Connect sets it.
	Connected bool

	// ClientIDs records the identifier passed to each Connect.
	ClientIDs []string

	// Subscriptions records the topic of each Subscribe.
	Subscriptions []string

	// Published records every Publish attempt, successful or not.
	Published []Message

	// Pumps counts calls to Pump.
	Pumps int

	// Closed tracks if Close was called.
	Closed bool

	handler Handler
	inbox   []Message
}

// Message is a recorded or queued message.
type Message struct {
	Topic   string
	Payload string
}

// NewFakeTransport creates a FakeTransport whose calls all succeed.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// Connect consumes the next scripted result.
func (f *FakeTransport) Connect(clientID string) bool {
	f.ClientIDs = append(f.ClientIDs, clientID)
	ok := next(&f.ConnectResults)
	f.Connected = ok
	return ok
}

// Subscribe consumes the next scripted result.
func (f *FakeTransport) Subscribe(topic string) bool {
	f.Subscriptions = append(f.Subscriptions, topic)
	return next(&f.SubscribeResults)
}

// Publish records the message.
func (f *FakeTransport) Publish(topic string, payload []byte) bool {
	f.Published = append(f.Published, Message{Topic: topic, Payload: string(payload)})
	return !f.PublishFails
}

// IsConnected returns Connected.
func (f *FakeTransport) IsConnected() bool {
	return f.Connected
}

// SetHandler sets the receiver for delivered messages.
func (f *FakeTransport) SetHandler(h Handler) {
	f.handler = h
}

// Deliver queues an inbound message for the next Pump.
func (f *FakeTransport) Deliver(topic, payload string) {
	f.inbox = append(f.inbox, Message{Topic: topic, Payload: payload})
}

// Pump hands queued messages to the handler.
func (f *FakeTransport) Pump() {
	f.Pumps++
	msgs := f.inbox
	f.inbox = nil
	if f.handler == nil {
		return
	}
	for _, m := range msgs {
		f.handler(m.Topic, []byte(m.Payload))
	}
}

// Close marks the transport as closed and disconnected.
func (f *FakeTransport) Close() {
	f.Closed = true
	f.Connected = false
}

func next(results *[]bool) bool {
	if len(*results) == 0 {
		return true
	}
	ok := (*results)[0]
	*results = (*results)[1:]
	return ok
}
