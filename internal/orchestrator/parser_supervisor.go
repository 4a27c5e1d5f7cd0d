package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/arlobridge/crawlcore/internal/logger"
)

// ParserSupervisor spawns and supervises N Parser Consumer OS
// processes (spec §4.5), each the same binary re-invoked with the
// `parse` subcommand. It watches each process's exit via cmd.Wait()
// and respawns it if it dies before Stop is called — the same
// "supervise, detect exit, restart" idiom the teacher applies to its
// in-process background goroutines, here applied to out-of-process
// children.
type ParserSupervisor struct {
	log   logger.Interface
	count int
	exe   string

	mu       sync.Mutex
	stopping bool
	cmds     []*exec.Cmd
	wg       sync.WaitGroup
}

// NewParserSupervisor constructs a supervisor for count parser processes.
func NewParserSupervisor(log logger.Interface, count int) (*ParserSupervisor, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: resolve own executable: %w", err)
	}
	return &ParserSupervisor{log: log, count: count, exe: exe}, nil
}

// Start launches count parser processes, each supervised in its own goroutine.
func (p *ParserSupervisor) Start(ctx context.Context) {
	for i := range p.count {
		p.wg.Add(1)
		go p.superviseOne(ctx, i)
	}
}

func (p *ParserSupervisor) superviseOne(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		if p.stopping {
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		cmd := exec.CommandContext(ctx, p.exe, "parse")
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		p.log.Info("starting parser process", "parser_id", id)
		if err := cmd.Start(); err != nil {
			p.log.Error("failed to start parser process", "parser_id", id, "error", err.Error())
			return
		}

		p.mu.Lock()
		p.cmds = append(p.cmds, cmd)
		p.mu.Unlock()

		err := cmd.Wait()

		p.mu.Lock()
		stopping := p.stopping
		p.mu.Unlock()
		if stopping || ctx.Err() != nil {
			return
		}

		if err != nil {
			p.log.Warn("parser process exited unexpectedly, restarting", "parser_id", id, "error", err.Error())
		} else {
			p.log.Warn("parser process exited cleanly but unexpectedly, restarting", "parser_id", id)
		}
	}
}

// HealthCheck is a no-op placeholder for the monitoring loop's
// per-tick parser health check: cmd.Wait() in superviseOne already
// detects and restarts dead processes as soon as they exit, so there
// is nothing further to poll here.
func (p *ParserSupervisor) HealthCheck(context.Context) {}

// Stop signals all supervised processes to stop respawning and waits
// for their goroutines to return. Process termination itself is
// driven by the context passed to Start being cancelled by the caller.
func (p *ParserSupervisor) Stop() {
	p.mu.Lock()
	p.stopping = true
	p.mu.Unlock()

	p.wg.Wait()
}
