// Package main is the interactive ray tracing viewer. With -headless it
// renders a number of frames without a window and saves the last one.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/rtviewer/internal/config"
	"github.com/Faultbox/rtviewer/internal/controls"
	"github.com/Faultbox/rtviewer/internal/engine/input"
	"github.com/Faultbox/rtviewer/internal/engine/renderer"
	"github.com/Faultbox/rtviewer/internal/engine/window"
	"github.com/Faultbox/rtviewer/internal/frameloop"
	"github.com/Faultbox/rtviewer/internal/logger"
	"github.com/Faultbox/rtviewer/internal/viewer"
)

const (
	windowTitle   = "rtviewer"
	titleInterval = 250 * time.Millisecond
	navInterval   = time.Second / 60
)

func init() {
	runtime.LockOSThread()
}

func main() {
	os.Exit(run())
}

func run() int {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if config.SaveConfig() {
		path, err := cfg.Save()
		if err != nil {
			logger.Error("failed to save config", zap.Error(err))
			return 1
		}
		fmt.Println(path)
		return 0
	}

	logger.Info("=== rtviewer ===", zap.String("scene", cfg.Scene.Path), zap.Bool("headless", config.Headless()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	v, err := viewer.New(cfg)
	if err != nil {
		logger.Error("failed to prepare scene", zap.Error(err))
		return 1
	}

	if config.Headless() {
		path, err := v.RenderHeadless(ctx, cfg.Capture.Frames)
		if err != nil {
			logger.Error("headless render failed", zap.Error(err))
			return 1
		}
		fmt.Println(path)
		return 0
	}

	if err := interactive(ctx, cfg, v); err != nil {
		logger.Error("viewer failed", zap.Error(err))
		return 1
	}
	return 0
}

func interactive(ctx context.Context, cfg *config.Config, v *viewer.Viewer) (err error) {
	defer func() {
		if stopErr := v.Loop.Stop(); err == nil {
			err = stopErr
		}
		if err == nil {
			err = v.Loop.Err()
		}
	}()

	win, err := window.New(window.Config{
		Title:      windowTitle,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      v.Loop.Settings().VSync,
	})
	if err != nil {
		return err
	}
	defer win.Close()

	r, err := renderer.New(win.DrawableSize())
	if err != nil {
		return err
	}
	defer r.Close()

	// A fullscreen window may not have the configured size.
	if w, h := win.GetSize(); w != cfg.Graphics.Width || h != cfg.Graphics.Height {
		if err := v.Loop.Resize(w, h); err != nil {
			return err
		}
	}

	bindings := controls.DefaultBindings()
	bindings.Speed = cfg.Render.Speed
	bindings.Sensitivity = cfg.Render.MouseSensitivity

	in := input.New()
	apply := func(cmd frameloop.Command) {
		if err := v.Loop.Apply(cmd); err != nil {
			logger.Warn("command failed", zap.String("command", fmt.Sprintf("%T", cmd)), zap.Error(err))
		}
	}

	if err := v.Loop.Start(ctx); err != nil {
		return err
	}

	nav := time.NewTicker(navInterval)
	defer nav.Stop()
	lastTitle := time.Time{}

	for !in.Update() {
		for _, e := range in.Events() {
			switch e.Type {
			case input.EventWindowResize:
				r.Resize(win.DrawableSize())
				if err := v.Loop.Resize(e.Width, e.Height); err != nil {
					logger.Warn("resize rejected", zap.Int("width", e.Width), zap.Int("height", e.Height), zap.Error(err))
				}
			case input.EventKeyDown:
				if bindings.Adjust(e.Key) {
					logger.Debug("navigation adjusted",
						zap.Float32("speed", bindings.Speed), zap.Float32("sensitivity", bindings.Sensitivity))
					continue
				}
				view := controls.View{FovY: v.Loop.Camera().FovY, Settings: v.Loop.Settings()}
				if cmd := bindings.Pressed(e.Key, view); cmd != nil {
					apply(cmd)
				}
			case input.EventMouseDrag:
				for _, cmd := range bindings.Drag(e.DX, e.DY) {
					apply(cmd)
				}
			}
		}

		select {
		case <-nav.C:
			for _, cmd := range bindings.Held(in.Held()) {
				apply(cmd)
			}
		case <-v.Loop.Done():
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		win.SetVSync(v.Loop.Settings().VSync)
		presented, err := v.Loop.Present(r)
		if err != nil {
			return err
		}
		if presented {
			win.SwapBuffers()
		} else {
			time.Sleep(time.Millisecond)
		}

		if time.Since(lastTitle) >= titleInterval {
			win.SetTitle(v.Title())
			lastTitle = time.Now()
		}
	}
	return nil
}
