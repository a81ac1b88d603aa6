package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "noterelay/pkg/logx"
)

func sdNotify(state string) (bool, error) { return daemon.SdNotify(false, state) }

func (a *App) notifySystemd(state string) {
	if a.notify == nil {
		return
	}
	sent, err := a.notify(state)
	if err != nil {
		a.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		a.log.Debug("sd_notify", logx.String("state", state))
	}
}

// startSystemd reports readiness and, when the unit sets WatchdogSec,
// pings the watchdog at half the interval. Both are no-ops outside systemd.
func (a *App) startSystemd() {
	a.notifySystemd(daemon.SdNotifyReady)

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		a.log.Warn("systemd watchdog config invalid", logx.Err(err))
		return
	}
	if interval <= 0 {
		return
	}
	a.log.Info("systemd watchdog enabled", logx.Duration("interval", interval))
	a.sup.Go0("systemd.watchdog", func(ctx context.Context) {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				a.notifySystemd(daemon.SdNotifyWatchdog)
			}
		}
	})
}
