// rotanim-sandbox shows one object's parts in the terminal and fires
// triggers at them from the keyboard.
//
// Usage:
//
//	rotanim-sandbox -config carrier.cfg [-object carrier] [-wav cues.wav]
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"rotanim/pkg/audio"
	"rotanim/pkg/config"
	"rotanim/pkg/host"
	"rotanim/pkg/log"
	"rotanim/pkg/reactor"
)

const frameInterval = 33 * time.Millisecond

// stackID is the trigger stack the sandbox records pushes under.
const stackID = 0

func main() {
	configFile := flag.String("config", "", "Model file, INI or YAML (required)")
	object := flag.String("object", "", "Object to show (default: first declared)")
	wavFile := flag.String("wav", "", "Record the audio cues to a WAV file")
	tick := flag.Duration("tick", 10*time.Millisecond, "Integration step")
	logFile := flag.String("logfile", "rotanim-sandbox.log", "Log file")
	flag.Parse()

	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -config is required\n")
		flag.Usage()
		os.Exit(1)
	}

	// The terminal belongs to tcell; logs go to the file only.
	fw, err := log.NewRotatingFileWriter(log.RotationConfig{Filename: *logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer fw.Close()
	root := log.Default()
	root.SetWriter(fw)
	root.SetColorize(false)

	if err := run(*configFile, *object, *wavFile, *tick); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path, object, wavPath string, tick time.Duration) error {
	model, err := config.LoadModelFile(path)
	if err != nil {
		return err
	}

	r := reactor.New(nil)
	log.Default().SetSimClock(r.Monotonic)
	cfg := host.DefaultConfig()
	cfg.Tick = tick
	h, err := host.New(r, model, cfg, nil)
	if err != nil {
		return err
	}

	sound := audio.NewEngine(audio.DefaultConfig())
	h.AddListener(sound)
	var rec *audio.Recorder
	if wavPath != "" {
		rec = audio.NewRecorder(sound, sound.SampleRate())
	}

	h.Start()
	r.Run()
	defer func() {
		h.Stop()
		r.End()
		r.Wait()
	}()

	ctx := context.Background()
	if object == "" {
		names, err := h.Objects(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return fmt.Errorf("model declares no objects")
		}
		object = names[0]
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	sb := &sandbox{host: h, view: newView(object), screen: screen, rec: rec}
	if err := sb.loop(ctx); err != nil {
		return err
	}

	if rec != nil {
		f, err := os.Create(wavPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := rec.WriteWAV(f); err != nil {
			return err
		}
	}
	return nil
}

// sandbox ties the view to a running host.
type sandbox struct {
	host   *host.Host
	view   *view
	screen tcell.Screen
	rec    *audio.Recorder
}

func (sb *sandbox) loop(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := sb.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if sb.apply(ctx, sb.view.keyAction(ev.Key(), ev.Rune())) {
					return nil
				}
			case *tcell.EventResize:
				sb.screen.Sync()
			}
		case now := <-ticker.C:
			if sb.rec != nil {
				sb.rec.Pull(now.Sub(last))
			}
			last = now
			if err := sb.render(ctx); err != nil {
				return err
			}
		}
	}
}

// apply runs a, returning true on quit.
func (sb *sandbox) apply(ctx context.Context, a action) bool {
	v := sb.view
	switch a.cmd {
	case cmdQuit:
		return true
	case cmdTrigger, cmdReset:
		d, err := sb.host.Trigger(ctx, v.object, a.req)
		switch {
		case err != nil:
			v.message = err.Error()
		case !d.Any():
			v.message = fmt.Sprintf("no template for %s %d", a.req.Kind, a.req.Subtype)
		default:
			v.message = fmt.Sprintf("%s: started %d queued %d cancelled %d snapped %d",
				a.req.Kind, d.Started, d.Queued, d.Cancelled, d.Snapped)
		}
	case cmdPush:
		ok, err := sb.host.Push(ctx, stackID, v.object, a.req)
		if err != nil {
			v.message = err.Error()
			break
		}
		v.message = fmt.Sprintf("pushed %s (matched %v), depth %d", a.req.Kind, ok, sb.host.StackDepth(stackID))
	case cmdPop:
		ok, err := sb.host.Pop(ctx, stackID)
		if err != nil {
			v.message = err.Error()
			break
		}
		v.message = fmt.Sprintf("popped (matched %v), depth %d", ok, sb.host.StackDepth(stackID))
	}
	return false
}

func (sb *sandbox) render(ctx context.Context) error {
	snaps, err := sb.host.Snapshot(ctx, sb.view.object)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return nil
	}
	sb.view.draw(sb.screen, snaps[0])
	sb.screen.Show()
	return nil
}
