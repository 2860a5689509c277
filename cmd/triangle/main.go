// Command triangle is the end-to-end demo the package tests aim at: it
// opens a window, builds a Context/Device, bakes a one-pass render graph
// that clears the swapchain and draws a hardcoded triangle, and drives
// the frame loop through Device.NextFrame/AcquireSwapchainImage/Submit/
// EndFrame. Grounded on the teacher's test/render_test.go for the
// glfw+vk.Init dance, generalized from its bare platform smoke test into
// a real render-graph-driven frame loop.
package main

import (
	"log"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/ashforge/vkcore"
	"github.com/ashforge/vkcore/descriptor"
	"github.com/ashforge/vkcore/rendergraph"
	"github.com/ashforge/vkcore/rpcache"
)

const (
	width  = 1280
	height = 720
)

func main() {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		log.Fatalf("glfw init: %v", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		log.Fatalf("vulkan init: %v", err)
	}

	window, err := glfw.CreateWindow(width, height, "vkcore triangle", nil, nil)
	if err != nil {
		log.Fatalf("create window: %v", err)
	}

	app := vkcore.AppInfo{
		Name:             "vkcore-triangle",
		Version:          1,
		APIVersion:       uint32(vk.MakeVersion(1, 1, 0)),
		InstanceExtensions: []string{"VK_KHR_surface"},
		DeviceExtensions: []string{"VK_KHR_swapchain"},
	}
	surfaceExt := window.GetRequiredInstanceExtensions()

	ctx, err := vkcore.NewContext(app, surfaceExt, nil)
	if err != nil {
		log.Fatalf("new context: %v", err)
	}
	defer ctx.Destroy()

	surfacePtr, err := window.CreateWindowSurface(ctx.Instance(), nil)
	if err != nil {
		log.Fatalf("create surface: %v", err)
	}
	surface := vk.SurfaceFromPointer(surfacePtr)

	queues := ctx.NewQueues()
	device, err := vkcore.NewDevice(ctx, queues, vkcore.DefaultDeviceTuning())
	if err != nil {
		log.Fatalf("new device: %v", err)
	}
	defer device.Destroy()

	swap, err := vkcore.NewSwapchain(ctx.Device(), ctx.PhysicalDevice(), surface, 3, vk.NullSwapchain)
	if err != nil {
		log.Fatalf("new swapchain: %v", err)
	}
	defer swap.Destroy()

	passCache := rpcache.NewCache(ctx.Device())
	defer passCache.Destroy()
	fbRing := rpcache.NewFramebufferRing(ctx.Device(), vkcore.DefaultDeviceTuning().TransientRingFrames)
	defer fbRing.Destroy()

	layouts := descriptor.NewLayoutCache(ctx.Device())
	defer layouts.Destroy()
	pipelines := descriptor.NewPipelineCache(ctx.Device())
	defer pipelines.Destroy()

	passDesc := rpcache.PassDesc{
		Color: []rpcache.AttachmentDesc{{
			Format:     swap.Format(),
			Samples:    vk.SampleCount1Bit,
			LoadOp:     vk.AttachmentLoadOpClear,
			StoreOp:    vk.AttachmentStoreOpStore,
			FinalLayout: vk.ImageLayoutPresentSrc,
		}},
	}
	renderPass, err := passCache.Get(passDesc)
	if err != nil {
		log.Fatalf("render pass: %v", err)
	}

	tri := &trianglePass{device: ctx.Device(), renderPass: renderPass, layouts: layouts, pipelines: pipelines}

	graph := rendergraph.New()
	graph.SetBackbufferDimensions(swap.Extent().Width, swap.Extent().Height, swap.Format())
	color := graph.AddTexture("color", rendergraph.AttachmentInfo{
		SizeClass: rendergraph.SizeSwapchainRelative, SizeX: 1, SizeY: 1,
		Format: swap.Format(), Samples: vk.SampleCount1Bit,
		Flags: rendergraph.AttachmentPersistent,
	})
	pass, err := graph.AddPass("triangle", rendergraph.QueueFlagGraphics, tri)
	if err != nil {
		log.Fatalf("add pass: %v", err)
	}
	pass.AddColorOutput(color)
	graph.SetBackbufferSource("color")

	if _, err := graph.Bake(); err != nil {
		log.Fatalf("bake: %v", err)
	}

	for !window.ShouldClose() {
		glfw.PollEvents()
		if err := runFrame(device, swap, graph, renderPass, fbRing); err != nil {
			log.Printf("frame error: %v", err)
		}
	}
}

// runFrame advances one frame: acquire, rebuild barriers via the baked
// graph, record and submit, present. Recoverable swapchain conditions
// (resize mid-frame) are logged and skipped rather than treated as
// fatal, per spec.md §4.2.
func runFrame(device *vkcore.Device, swap *vkcore.Swapchain, graph *rendergraph.RenderGraph, renderPass vk.RenderPass, fbRing *rpcache.FramebufferRing) error {
	if err := device.NextFrame(); err != nil {
		return err
	}

	imageIndex, recoverable, err := device.AcquireSwapchainImage(swap)
	if recoverable {
		log.Printf("swapchain needs rebuild: %v", err)
		return nil
	}
	if err != nil {
		return err
	}

	handle, err := device.RequestCommandBuffer(vkcore.QueueGraphics)
	if err != nil {
		return err
	}
	cmd, err := vkcore.Begin(handle, vkcore.QueueGraphics, device.Raw())
	if err != nil {
		return err
	}

	beginPass := func(pp *rendergraph.PhysicalPass) (*vk.RenderPassBeginInfo, error) {
		view := swap.View(imageIndex)
		fb, err := fbRing.Get(renderPass, []vk.ImageView{view}, swap.Extent().Width, swap.Extent().Height)
		if err != nil {
			return nil, err
		}
		return &vk.RenderPassBeginInfo{
			SType:       vk.StructureTypeRenderPassBeginInfo,
			RenderPass:  renderPass,
			Framebuffer: fb,
			RenderArea:  vk.Rect2D{Extent: swap.Extent()},
			ClearValueCount: 1,
			PClearValues:    []vk.ClearValue{vk.NewClearValue([]float32{0, 0, 0, 1})},
		}, nil
	}

	// The triangle demo has exactly one resource ("color") and it is
	// always the swapchain image just acquired, so resolveImage ignores
	// its argument; a graph with more than one external attachment would
	// switch on r.Name here instead.
	resolveImage := func(r *rendergraph.Resource) (vk.Image, vk.ImageAspectFlags) {
		return swap.Image(imageIndex), vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}

	// Single-queue graph: any DependencySemaphore handoff Execute
	// returns would imply a second queue this demo never submits to, so
	// there is nothing to wire into Submit below.
	if _, err := graph.Execute(nil, cmd, beginPass, resolveImage); err != nil {
		return err
	}
	if err := cmd.End(); err != nil {
		return err
	}
	if err := device.Submit(vkcore.QueueGraphics, cmd.Handle(), nil, nil, nil, 0); err != nil {
		return err
	}
	_, err = device.EndFrame()
	return err
}

// trianglePass is the graph's single Interface implementation: it
// compiles one hardcoded pipeline on first Setup and issues one draw
// with no vertex buffer bound (positions are baked into the vertex
// shader via gl_VertexIndex).
type trianglePass struct {
	device     vk.Device
	renderPass vk.RenderPass
	layouts    *descriptor.LayoutCache
	pipelines  *descriptor.PipelineCache

	program  *descriptor.Program
	pipeline vk.Pipeline
}

func (t *trianglePass) NeedsRender() bool { return true }

func (t *trianglePass) Setup() error {
	if t.pipeline != nil {
		return nil
	}

	vertModule, err := descriptor.LoadShaderModule(t.device, "cmd/triangle/shaders/triangle.vert.spv")
	if err != nil {
		return err
	}
	fragModule, err := descriptor.LoadShaderModule(t.device, "cmd/triangle/shaders/triangle.frag.spv")
	if err != nil {
		return err
	}

	setLayout, err := t.layouts.SetLayout(nil)
	if err != nil {
		return err
	}
	layout, err := t.layouts.PipelineLayout(setLayout, nil, nil)
	if err != nil {
		return err
	}

	program := &descriptor.Program{
		Layout: layout,
		Stages: []vk.PipelineShaderStageCreateInfo{
			{SType: vk.StructureTypePipelineShaderStageCreateInfo, Stage: vk.ShaderStageVertexBit, Module: vertModule, PName: "main\x00"},
			{SType: vk.StructureTypePipelineShaderStageCreateInfo, Stage: vk.ShaderStageFragmentBit, Module: fragModule, PName: "main\x00"},
		},
	}
	t.program = program

	key := descriptor.NewPipelineKey(t.renderPass, 0, program)
	pipeline, err := t.pipelines.GetOrCreate(key, func() (vk.Pipeline, error) {
		return buildTrianglePipeline(t.device, t.renderPass, program)
	})
	if err != nil {
		return err
	}
	t.pipeline = pipeline
	return nil
}

func (t *trianglePass) Build(cmd rendergraph.CommandRecorder) error {
	cb, ok := cmd.(*vkcore.CommandBuffer)
	if !ok {
		return vkcore.NewErrorf(vkcore.KindIncompatibleState, "triangle pass requires a *vkcore.CommandBuffer")
	}
	cb.SetPipeline(t.pipeline, t.program.Layout)
	cb.SetViewport(vk.Viewport{Width: float32(width), Height: float32(height), MinDepth: 0, MaxDepth: 1})
	cb.SetScissor(vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}})
	cb.Draw(3, 1, 0, 0)
	return nil
}

// buildTrianglePipeline mirrors the teacher's PipelineBuilder (pipeline.go):
// no vertex input, triangle-list topology, single-sample no-blend color
// attachment. Generalized just enough to take an arbitrary render pass
// and Program instead of the teacher's hardcoded globals.
func buildTrianglePipeline(device vk.Device, renderPass vk.RenderPass, program *descriptor.Program) (vk.Pipeline, error) {
	vertexInput := vk.PipelineVertexInputStateCreateInfo{SType: vk.StructureTypePipelineVertexInputStateCreateInfo}
	assembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:     vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:  vk.CullModeFlags(vk.CullModeNone),
		FrontFace: vk.FrontFaceClockwise,
		LineWidth: 1.0,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}
	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}
	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(program.Stages)),
		PStages:             program.Stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &assembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              program.Layout,
		RenderPass:          renderPass,
		Subpass:             0,
	}

	pipelines := []vk.Pipeline{vk.NullPipeline}
	ret := vk.CreateGraphicsPipelines(device, nil, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if ret != vk.Success {
		return nil, vkcore.WrapResult(ret)
	}
	return pipelines[0], nil
}
