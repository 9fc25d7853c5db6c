package timekill

import (
	"sort"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill/logging"
	"github.com/andewx/timekill/spirv"
)

const defaultEntryPoint = "main"

// VertexAttribute is one vertex input derived from the vertex shader. All
// attributes read binding 0 at offset 0.
type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Format   vk.Format
	Offset   uint32
}

func (a VertexAttribute) description() vk.VertexInputAttributeDescription {
	return vk.VertexInputAttributeDescription{
		Location: a.Location,
		Binding:  a.Binding,
		Format:   a.Format,
		Offset:   a.Offset,
	}
}

// vertexAttributes derives attributes from the non built-in inputs of the
// vertex entry point. Other entry points in the module are ignored. Input and
// output locations must each be unique.
func vertexAttributes(m *spirv.Module) ([]VertexAttribute, error) {
	inputs, outputs, _ := m.InterfaceOf(spirv.ExecutionModelVertex)
	if err := spirv.CheckLocations(inputs); err != nil {
		return nil, errors.Wrap(err, "vertex inputs")
	}
	if err := spirv.CheckLocations(outputs); err != nil {
		return nil, errors.Wrap(err, "vertex outputs")
	}

	var attrs []VertexAttribute
	for _, v := range inputs {
		if v.BuiltIn || !v.HasLocation {
			continue
		}
		format, ok := attributeFormat(v.Type)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedAttrib, "input %q at location %d has type %v", v.Name, v.Location, v.Type)
		}
		attrs = append(attrs, VertexAttribute{Location: v.Location, Format: format})
	}
	return attrs, nil
}

type stagedPath struct {
	stage ShaderStage
	path  string
}

// assignStages classifies every path and rejects a second binary for a
// stage, naming both files. The result is ordered by stage.
func assignStages(paths []string) ([]stagedPath, error) {
	if len(paths) == 0 {
		return nil, newErr(KindValidation, "assign shader stages", ErrNoShaderBinaries)
	}
	byStage := make(map[ShaderStage]string, len(paths))
	out := make([]stagedPath, 0, len(paths))
	for _, p := range paths {
		stage, err := ClassifyShader(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := byStage[stage]; ok {
			return nil, newErr(KindValidation, "assign shader stages",
				errors.Wrapf(ErrDuplicateStage, "%s stage in both %s and %s", stage, prev, p))
		}
		byStage[stage] = p
		out = append(out, stagedPath{stage: stage, path: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].stage < out[j].stage })
	return out, nil
}

// PipelineBuilder builds the single graphics pipeline and its layout from a
// set of shader binaries and the render pass held in the shared resources.
type PipelineBuilder struct {
	resources *CoreResources
	released  bool

	shaderStages         []vk.PipelineShaderStageCreateInfo
	vertexInputInfo      vk.PipelineVertexInputStateCreateInfo
	inputAssembly        vk.PipelineInputAssemblyStateCreateInfo
	viewport             vk.Viewport
	scissor              vk.Rect2D
	rasterizer           vk.PipelineRasterizationStateCreateInfo
	multisampling        vk.PipelineMultisampleStateCreateInfo
	depthStencil         vk.PipelineDepthStencilStateCreateInfo
	colorBlendAttachment vk.PipelineColorBlendAttachmentState

	attributes []VertexAttribute
}

// NewPipelineBuilder takes a hold on resources.
func NewPipelineBuilder(resources *CoreResources) (*PipelineBuilder, error) {
	if err := resources.Retain(); err != nil {
		return nil, err
	}
	return &PipelineBuilder{resources: resources}, nil
}

// Attributes returns the vertex attributes of the last built pipeline.
func (p *PipelineBuilder) Attributes() []VertexAttribute {
	return p.attributes
}

// setFixedState fills the fixed-function state for a framebuffer of
// width x height.
func (p *PipelineBuilder) setFixedState(width, height int, attrs []VertexAttribute) {
	descriptions := make([]vk.VertexInputAttributeDescription, len(attrs))
	for i, a := range attrs {
		descriptions[i] = a.description()
	}
	p.vertexInputInfo = vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexAttributeDescriptionCount: uint32(len(descriptions)),
		PVertexAttributeDescriptions:    descriptions,
	}

	p.inputAssembly = vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	extent := vk.Extent2D{Width: uint32(max(width, 0)), Height: uint32(max(height, 0))}
	p.viewport = vk.Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	p.scissor = vk.Rect2D{Offset: vk.Offset2D{}, Extent: extent}

	p.rasterizer = vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}

	p.multisampling = vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		SampleShadingEnable:  vk.False,
		MinSampleShading:     1.0,
	}

	p.depthStencil = vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.True,
		DepthWriteEnable:      vk.True,
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
		MinDepthBounds:        0.0,
		MaxDepthBounds:        1.0,
	}

	p.colorBlendAttachment = vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit |
			vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
}

type loadedShader struct {
	binary *ShaderBinary
	module vk.ShaderModule
	entry  string
}

// CreatePipeline builds the graphics pipeline for renderPass, subpass 0,
// from the shader binaries at paths. Shader modules are destroyed before it
// returns. The pipeline and layout are stored in the shared resources,
// replacing any previous ones.
func (p *PipelineBuilder) CreatePipeline(window Window, paths []string, renderPass vk.RenderPass) error {
	r := p.resources
	if r.Device == nil {
		return newErr(KindState, "create pipeline", ErrMissingHandle)
	}
	if renderPass == nullRenderPass {
		return newErr(KindState, "create pipeline", errors.Wrap(ErrMissingHandle, "render pass"))
	}

	staged, err := assignStages(paths)
	if err != nil {
		return err
	}

	shaders := make([]loadedShader, 0, len(staged))
	defer func() {
		for _, s := range shaders {
			vk.DestroyShaderModule(r.Device, s.module, nil)
		}
	}()

	var attrs []VertexAttribute
	for _, sp := range staged {
		bin, err := LoadShaderBinary(sp.path)
		if err != nil {
			return err
		}
		module, err := spirv.Parse(bin.Words)
		if err != nil {
			return newPathErr(KindValidation, "reflect shader", sp.path, err)
		}
		if sp.stage == StageVertex {
			attrs, err = vertexAttributes(module)
			if err != nil {
				return newPathErr(KindValidation, "derive vertex attributes", sp.path, err)
			}
		}
		entry, ok := module.EntryPointName(sp.stage.ExecutionModel())
		if !ok {
			entry = defaultEntryPoint
		}

		handle, err := createShaderModule(r.Device, bin.Words)
		if err != nil {
			return newPathErr(KindCreation, "create shader module", sp.path, err)
		}
		shaders = append(shaders, loadedShader{binary: bin, module: handle, entry: entry})
	}

	p.shaderStages = make([]vk.PipelineShaderStageCreateInfo, len(shaders))
	for i, s := range shaders {
		p.shaderStages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  s.binary.Stage.Flag(),
			Module: s.module,
			PName:  safeString(s.entry),
		}
		logging.Debug("pipeline: %s stage from %s (entry %s)", s.binary.Stage, s.binary.Path, s.entry)
	}

	width, height := window.FramebufferSize()
	p.setFixedState(width, height, attrs)

	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(r.Device, &vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}, nil, &layout)
	if err := checkResult(ret, "create pipeline layout"); err != nil {
		return err
	}

	viewports := []vk.Viewport{p.viewport}
	scissors := []vk.Rect2D{p.scissor}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    viewports,
		ScissorCount:  1,
		PScissors:     scissors,
	}
	blendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{p.colorBlendAttachment},
	}

	infos := []vk.GraphicsPipelineCreateInfo{{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(p.shaderStages)),
		PStages:             p.shaderStages,
		PVertexInputState:   &p.vertexInputInfo,
		PInputAssemblyState: &p.inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &p.rasterizer,
		PMultisampleState:   &p.multisampling,
		PDepthStencilState:  &p.depthStencil,
		PColorBlendState:    &blendState,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}}
	pipelines := make([]vk.Pipeline, 1)
	ret = vk.CreateGraphicsPipelines(r.Device, vk.PipelineCache(vk.NullHandle), 1, infos, nil, pipelines)
	if err := checkResult(ret, "create graphics pipeline"); err != nil {
		vk.DestroyPipelineLayout(r.Device, layout, nil)
		return err
	}

	p.Destroy()
	r.Pipeline = pipelines[0]
	r.PipelineLayout = layout
	p.attributes = attrs
	logging.Info("pipeline: created with %d stages and %d vertex attributes", len(shaders), len(attrs))
	return nil
}

// Destroy removes the pipeline and its layout. It is a no-op when neither
// exists.
func (p *PipelineBuilder) Destroy() {
	r := p.resources
	if r.Device == nil {
		if r.Pipeline != vk.NullPipeline || r.PipelineLayout != vk.NullPipelineLayout {
			logging.Warn("pipeline: destroy skipped, no logical device")
		}
		return
	}
	if r.Pipeline != vk.NullPipeline {
		vk.DestroyPipeline(r.Device, r.Pipeline, nil)
		r.Pipeline = vk.NullPipeline
	}
	if r.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(r.Device, r.PipelineLayout, nil)
		r.PipelineLayout = vk.NullPipelineLayout
	}
}

// Release destroys the pipeline and drops the hold on the resources.
func (p *PipelineBuilder) Release() {
	if p.released {
		return
	}
	p.Destroy()
	p.released = true
	p.resources.Release()
}
