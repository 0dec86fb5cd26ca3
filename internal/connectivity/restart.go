package connectivity

import (
	"os"

	"github.com/rs/zerolog"
)

// Restarter performs a full process restart. In production it does not
// return.
type Restarter interface {
	Restart(reason string)
}

// ExitRestarter restarts by exiting non-zero and leaving the relaunch to the
// service manager (systemd Restart=always).
type ExitRestarter struct {
	// Code is the exit status. Zero is replaced by 1 so the service manager
	// treats the exit as a failure.
	Code int

	// BeforeExit runs first, e.g. to drive outputs to a safe state. Optional.
	BeforeExit func()

	Log  zerolog.Logger
	exit func(int)
}

// NewExitRestarter returns an ExitRestarter calling os.Exit.
func NewExitRestarter(code int, log zerolog.Logger) *ExitRestarter {
	return &ExitRestarter{Code: code, Log: log, exit: os.Exit}
}

// Restart runs BeforeExit and exits the process.
func (r *ExitRestarter) Restart(reason string) {
	code := r.Code
	if code == 0 {
		code = 1
	}
	r.Log.Error().Str("reason", reason).Int("exit_code", code).Msg("restarting")
	if r.BeforeExit != nil {
		r.BeforeExit()
	}
	exit := r.exit
	if exit == nil {
		exit = os.Exit
	}
	exit(code)
}
