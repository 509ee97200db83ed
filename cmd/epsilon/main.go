// Command epsilon opens a window and draws a triangle with Vulkan,
// recreating the swapchain as the window is resized or minimized.
package main

//go:generate glslc -o ../../shaders/triangle.vert.spv ../../shaders/triangle.vert
//go:generate glslc -o ../../shaders/triangle.frag.spv ../../shaders/triangle.frag

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/xlab/closer"

	"github.com/mxplusb/epsilon/src/platform/window"
	"github.com/mxplusb/epsilon/src/render"
	"github.com/mxplusb/epsilon/src/render/vulkan"
)

func init() {
	// glfw must run on the main thread.
	runtime.LockOSThread()

	flag.IntVar(&args.width, "width", 800, "initial window width")
	flag.IntVar(&args.height, "height", 600, "initial window height")
	flag.StringVar(&args.title, "title", "epsilon", "window title")
	flag.StringVar(&args.vert, "vert", "shaders/triangle.vert.spv", "vertex shader SPIR-V")
	flag.StringVar(&args.frag, "frag", "shaders/triangle.frag.spv", "fragment shader SPIR-V")
	flag.BoolVar(&args.debug, "debug", false, "enable Vulkan validation layers")
	flag.BoolVar(&args.wait, "wait", false, "redraw only when window events arrive")
	flag.DurationVar(&args.fenceTimeout, "fence-timeout", 0, "give up when a frame takes longer than this (0 waits forever)")
	flag.BoolVar(&args.verbose, "v", false, "log per-frame diagnostics")
}

var args struct {
	width, height int
	title         string
	vert, frag    string
	debug         bool
	wait          bool
	fenceTimeout  time.Duration
	verbose       bool
}

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if args.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	render.SetLogger(log)
	vulkan.SetLogger(log)
	window.SetLogger(log)

	// On a signal closer runs this from its own goroutine: stop the loop and
	// wait until main has torn everything down on its thread.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	closer.Bind(func() {
		cancel()
		window.Wake()
		<-done
	})

	err := run(ctx, log)
	close(done)
	if err != nil {
		log.Error("epsilon failed", slog.Any("err", err))
		closer.Exit(1)
	}
	closer.Close()
}

func run(ctx context.Context, log *slog.Logger) (err error) {
	vert, err := os.ReadFile(args.vert)
	if err != nil {
		return fmt.Errorf("read vertex shader: %w", err)
	}
	frag, err := os.ReadFile(args.frag)
	if err != nil {
		return fmt.Errorf("read fragment shader: %w", err)
	}

	if err := window.Init(); err != nil {
		return err
	}
	defer window.Terminate()

	cfg := window.DefaultConfig()
	cfg.Width, cfg.Height, cfg.Title = args.width, args.height, args.title
	win, err := window.New(cfg)
	if err != nil {
		return err
	}
	defer win.Destroy()

	inst, err := vulkan.NewInstance(args.title, win.RequiredInstanceExtensions(), args.debug)
	if err != nil {
		return err
	}
	defer inst.Destroy()

	surface, err := win.CreateSurface(inst.Handle())
	if err != nil {
		return err
	}
	dev, err := vulkan.NewDevice(inst, surface)
	if err != nil {
		return err
	}
	defer dev.Destroy()

	pb, err := dev.NewPipelineBuilder(vert, frag)
	if err != nil {
		return err
	}
	defer pb.Destroy()

	vb, err := dev.NewVertexBuffer(vulkan.Triangle)
	if err != nil {
		return err
	}
	defer vb.Destroy()

	opts := []render.Option{
		render.WithWaitEvents(args.wait),
		render.WithFenceTimeout(args.fenceTimeout),
	}
	sm, err := render.NewSwapchainManager(dev, win.Extent(), opts...)
	if err != nil {
		return err
	}
	loop, err := render.NewLoop(win, dev, sm, render.NewRecorder(dev, opts...), pb, vb, opts...)
	if err != nil {
		sm.Destroy()
		return err
	}
	defer func() {
		err = errors.Join(err, loop.Close())
	}()

	log.Info("presenting", slog.String("device", dev.Name()), slog.String("extent", sm.Extent().String()))
	err = loop.Run(ctx)
	stats := loop.Stats()
	log.Info("presentation stopped",
		slog.Uint64("presented", stats.Presented),
		slog.Uint64("skipped", stats.Skipped),
		slog.Uint64("out of date", stats.OutOfDate),
		slog.Uint64("dropped", stats.Dropped),
		slog.Uint64("generation", stats.Generation))
	return err
}
