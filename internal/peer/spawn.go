package peer

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/firelink/firebridge/internal/channel"
	"github.com/firelink/firebridge/internal/logging"
	"go.uber.org/zap"
)

// Spawn launches the peer process described by the manifest and returns a
// transport framed over its stdin/stdout pipes. The process's exit surfaces
// as the transport's disconnect: its stdout closes, the reader loop sees EOF.
// Stderr is inherited so peer diagnostics land in the bridge's own stderr.
func Spawn(ctx context.Context, m *Manifest, handlers channel.Handlers, maxFrame int, log *logging.Logger) (*channel.StreamTransport, error) {
	if log == nil {
		log = logging.NewNop()
	}

	// Explicit pipes instead of StdinPipe/StdoutPipe: cmd.Wait closes the
	// pipes it created, which would race with the transport's reader loop.
	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create peer stdin pipe: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, fmt.Errorf("failed to create peer stdout pipe: %w", err)
	}

	cmd := exec.CommandContext(ctx, m.Command, m.Args...)
	cmd.Dir = m.Dir
	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = os.Stderr
	if len(m.Env) > 0 {
		cmd.Env = append(os.Environ(), m.Env...)
	}

	if err := cmd.Start(); err != nil {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("failed to start peer %q: %w", m.Name, err)
	}
	// The child owns its ends now; drop ours so EOF propagates on exit.
	inR.Close()
	outW.Close()

	log.Info("peer started",
		zap.String("peer", m.Name),
		zap.Int("pid", cmd.Process.Pid))

	// Closing inW signals the peer to exit; outR closes after the read loop.
	transport := channel.NewStream(outR, inW, handlers, maxFrame, log, inW, outR)
	transport.Start()

	// Reap the process so it never lingers as a zombie.
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Warn("peer exited", zap.String("peer", m.Name), zap.Error(err))
		} else {
			log.Info("peer exited", zap.String("peer", m.Name))
		}
	}()

	return transport, nil
}
