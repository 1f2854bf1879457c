// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	_ "golang.org/x/image/bmp"

	"github.com/berylllium/lise/core"
	"github.com/berylllium/lise/gfx/vkr"
	"github.com/berylllium/lise/scene"
)

func init() {
	runtime.LockOSThread()
}

// Essential globals
var (
	vkInstance core.Instance
	vkRenderer *vkr.VulkanRenderer
	sdlWindow  *sdl.Window
	sdlSurface unsafe.Pointer

	frameCounter int64
	frameNanos   int64
)

// Profiling and overrides
var (
	cpuProfile    = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile    = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile  = flag.String("trace", "", "Trace output for profiling")
	debug         = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	verbose       = flag.Bool("v", false, "Log debug events")
	shaderDir     = flag.String("shaders", "", "Directory with compiled shaders")
	shaderArchive = flag.String("archive", "", "Lar archive with compiled shaders")
	texturePath   = flag.String("texture", "", "Image file to texture the mesh with")
)

// spinner turns the rendered mesh a constant step around the z axis
// every scene tick.
type spinner struct {
	renderer *vkr.VulkanRenderer
	angle    float32
}

func (s *spinner) EnteredTree() {}

func (s *spinner) LeftTree() {}

func (s *spinner) Tick() {
	s.angle += 0.005
	s.renderer.SetModel(glm.HomogRotate3D(s.angle, glm.Vec3{0, 0, 1}))
}

func newWindow(cfg core.RendererConfiguration) *sdl.Window {
	window, err := sdl.CreateWindow("LiSE",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.ScreenWidth),
		int32(cfg.ScreenHeight),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		log.Fatal(err)
	}
	return window
}

func loadTexture(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// setupProfiling starts the profilers the flags ask for and returns a
// stop function for main to defer.
func setupProfiling() func() {
	var stops []func()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		stops = append(stops, pprof.StopCPUProfile)
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := trace.Start(f); err != nil {
			log.Fatal(err)
		}
		stops = append(stops, trace.Stop)
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

func writeHeapProfile() {
	if *memProfile == "" {
		return
	}
	f, err := os.Create(*memProfile)
	if err != nil {
		log.Fatal(err)
	}
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Fatal(err)
	}
}

func main() {
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if err := godotenv.Load(); err == nil {
		log.Debug("loaded environment from .env")
	}
	configuration := core.LoadConfiguration()
	if *shaderDir != "" {
		configuration.Renderer.ShaderDirectory = *shaderDir
	}
	if *shaderArchive != "" {
		configuration.Renderer.ShaderArchive = *shaderArchive
	}
	if *debug {
		configuration.Instance.DebugMode = true
	}

	stopProfiling := setupProfiling()
	defer stopProfiling()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		log.Fatal(err)
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		log.Fatal(err)
	}
	defer sdl.VulkanUnloadLibrary()

	sdlWindow = newWindow(configuration.Renderer)
	defer sdlWindow.Destroy()

	{
		cfg := configuration.Instance
		cfg.Extensions = append(cfg.Extensions, sdlWindow.VulkanGetInstanceExtensions()...)

		vi, err := core.NewVulkanInstance(core.DefaultVulkanApplicationInfo, sdl.VulkanGetVkGetInstanceProcAddr(), cfg)
		if err != nil {
			log.Fatal(err)
		}
		vkInstance = vi
		defer vkInstance.Destroy()
	}

	if srf, err := sdlWindow.VulkanCreateSurface(vkInstance.Inner()); err != nil {
		log.Fatal(err)
	} else {
		sdlSurface = srf
		vkInstance.SetSurface(sdlSurface)
	}

	var rendererErr error
	vkRenderer, rendererErr = vkr.NewVulkanRenderer(vkInstance, configuration.Renderer)
	if rendererErr != nil {
		log.Fatal(rendererErr)
	}

	if *texturePath != "" {
		img, err := loadTexture(*texturePath)
		if err != nil {
			log.Fatal(err)
		}
		if err := vkRenderer.SetTexture(img); err != nil {
			log.Fatal(err)
		}
	}

	if err := vkRenderer.Initialise(); err != nil {
		log.Fatal(err)
	}
	defer vkRenderer.Destroy()

	sceneTree := scene.New()
	if _, err := sceneTree.Insert(sceneTree.Root(), "cube", &spinner{renderer: vkRenderer}); err != nil {
		log.Fatal(err)
	}

	timeService := core.NewTime(configuration.Time)

	ctx, cancel := context.WithCancel(context.Background())

	programSync := sync.WaitGroup{}

	/* Frame counter loop */
	programSync.Add(1)
	go func(ctx context.Context, wg *sync.WaitGroup) {
	CounterLoop:
		for {
			select {
			case <-ctx.Done():
				break CounterLoop
			default:
				currentCount := atomic.LoadInt64(&frameCounter)
				atomic.StoreInt64(&frameCounter, 0)
				frameTime := time.Duration(atomic.LoadInt64(&frameNanos))
				fmt.Printf("\r\033[2KFrame count: %d\tframe time: %v\tCGO calls: %d", currentCount*5, frameTime, runtime.NumCgoCall())
				time.Sleep(200 * time.Millisecond)
				// 200 ms * 5 = 1s, therefore we need to mutiply the count
			}
		}
		wg.Done()
	}(ctx, &programSync)

	/* Renderer loop */
	programSync.Add(1)
	go func(ctx context.Context, wg *sync.WaitGroup) {
	DrawLoop:
		for {
			select {
			case <-ctx.Done():
				log.Debug("draw loop exited")
				break DrawLoop
			case <-timeService.FpsTicker().C:
				atomic.StoreInt64(&frameNanos, int64(timeService.Delta()))
				sceneTree.Tick()
				if err := vkRenderer.Draw(); err != nil {
					log.Error("draw: " + err.Error())
					cancel()
					continue DrawLoop
				}
				atomic.AddInt64(&frameCounter, 1)
			}
		}
		wg.Done()
	}(ctx, &programSync)

	/* Event loop */
EventLoop:
	for {
		select {
		case <-ctx.Done():
			log.Debug("event loop exited")
			break EventLoop
		case <-timeService.EventTicker().C:
			var event sdl.Event
			for event = sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Keysym.Sym == sdl.K_ESCAPE {
						cancel()
						continue EventLoop
					}
				case *sdl.WindowEvent:
					if et.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
						vkRenderer.Resize(uint32(et.Data1), uint32(et.Data2))
					}
				case *sdl.QuitEvent:
					cancel()
					continue EventLoop
				}
			}
		}
	}

	programSync.Wait()
	writeHeapProfile()
}
