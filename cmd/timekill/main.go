// Command timekill opens a window and brings up the Vulkan context, swapchain,
// render pass and graphics pipeline for the shaders found in the configured
// shader directories.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill"
	"github.com/andewx/timekill/logging"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	var (
		configPath = flag.String("config", "", "JSON configuration file")
		debug      = flag.Bool("debug", false, "enable validation layers and debug logging")
		trace      = flag.Bool("trace", false, "enable trace logging")
		width      = flag.Int("width", 0, "window width (overrides configuration)")
		height     = flag.Int("height", 0, "window height (overrides configuration)")
		shaderDir  = flag.String("shaders", "", "additional shader directory")
	)
	flag.Parse()

	config := timekill.NewConfiguration()
	if *configPath != "" {
		var err error
		if config, err = timekill.LoadConfiguration(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	config.DebugEnabled = config.DebugEnabled || *debug
	config.TraceEnabled = config.TraceEnabled || *trace
	if *width > 0 {
		config.Width = *width
	}
	if *height > 0 {
		config.Height = *height
	}
	if *shaderDir != "" {
		config.AddShaderDirectory(*shaderDir)
	}

	if err := logging.Init(logging.Options{
		FilePath: config.LogFile,
		Debug:    config.DebugEnabled,
		Trace:    config.TraceEnabled,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	if err := run(config); err != nil {
		logging.Error("%v", err)
		logging.Close()
		os.Exit(1)
	}
}

func run(config *timekill.Configuration) error {
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return err
	}

	window, err := glfw.CreateWindow(config.Width, config.Height, config.AppName, nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	resized := false
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		resized = true
	})

	display := timekill.NewCoreDisplay(window)
	ctx, err := timekill.NewCoreContext(display, config)
	if err != nil {
		return err
	}
	defer ctx.Destroy()
	logging.Info("timekill: running on %s", ctx.Device().Name)

	resources := ctx.Resources()
	swapchain, err := timekill.NewCoreSwapchain(resources, display)
	if err != nil {
		return err
	}
	defer swapchain.Release()

	renderPass, err := timekill.NewCoreRenderPass(resources)
	if err != nil {
		return err
	}
	defer renderPass.Release()

	pipeline, err := timekill.NewPipelineBuilder(resources)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	shaders, err := timekill.NewShaderCatalog(config).Discover()
	if err != nil {
		return err
	}

	build := func() error {
		if err := swapchain.Recreate(); err != nil {
			return err
		}
		if err := renderPass.Create(); err != nil {
			return err
		}
		if len(shaders) == 0 {
			logging.Warn("timekill: no shader binaries found, skipping pipeline")
			return nil
		}
		return pipeline.CreatePipeline(display, shaders, renderPass.Handle())
	}
	if err := build(); err != nil {
		return err
	}

	for !window.ShouldClose() {
		glfw.WaitEvents()
		if !resized {
			continue
		}
		resized = false
		if w, h := display.FramebufferSize(); w == 0 || h == 0 {
			continue
		}
		if err := build(); err != nil {
			return err
		}
	}
	return ctx.QueuesWaitIdle()
}
