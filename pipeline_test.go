package timekill

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill/spirv"
	"github.com/andewx/timekill/spirv/spirvtest"
)

func TestAssignStages(t *testing.T) {
	staged, err := assignStages([]string{"shaders/tri.frag.spv", "shaders/tri.vert.spv", "shaders/tri.geom.spv"})
	if err != nil {
		t.Fatalf("assignStages: %v", err)
	}
	want := []ShaderStage{StageVertex, StageFragment, StageGeometry}
	if len(staged) != len(want) {
		t.Fatalf("got %d stages, want %d", len(staged), len(want))
	}
	for i, s := range staged {
		if s.stage != want[i] {
			t.Errorf("stage %d = %s, want %s", i, s.stage, want[i])
		}
	}
}

func TestAssignStagesDuplicate(t *testing.T) {
	_, err := assignStages([]string{"a.vert.spv", "first.frag.spv", "second.frag.spv"})
	if !errors.Is(err, ErrDuplicateStage) || KindOf(err) != KindValidation {
		t.Fatalf("err = %v, want validation ErrDuplicateStage", err)
	}
	for _, name := range []string{"first.frag.spv", "second.frag.spv"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not name %s", err, name)
		}
	}
}

func TestAssignStagesRejects(t *testing.T) {
	if _, err := assignStages(nil); !errors.Is(err, ErrNoShaderBinaries) {
		t.Errorf("no binaries: %v", err)
	}
	if _, err := assignStages([]string{"a.vert.spv", "b.xyz.spv"}); !errors.Is(err, ErrUnknownShaderType) {
		t.Errorf("unknown type: %v", err)
	}
}

func TestVertexAttributes(t *testing.T) {
	a := spirvtest.New()
	f32 := a.Float()
	u32t := a.Int(false)
	vec2 := a.Vector(f32, 2)
	vec3 := a.Vector(f32, 3)
	vec4 := a.Vector(f32, 4)

	fn := a.NextID()
	uv := a.Input("inUV", vec2, 2)
	pos := a.Input("inPosition", vec3, 0)
	idx := a.Input("inIndex", u32t, 1)
	out := a.Output("fragColor", vec4, 0)
	vertexID := a.Variable(a.Pointer(spirv.StorageClassInput, u32t), spirv.StorageClassInput)
	a.BuiltIn(vertexID, 42)
	a.EntryPoint(spirv.ExecutionModelVertex, fn, "main", pos, idx, uv, out, vertexID)

	m, err := spirv.Parse(a.Words())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	attrs, err := vertexAttributes(m)
	if err != nil {
		t.Fatalf("vertexAttributes: %v", err)
	}
	want := []VertexAttribute{
		{Location: 0, Format: vk.FormatR32g32b32Sfloat},
		{Location: 1, Format: vk.FormatR32Uint},
		{Location: 2, Format: vk.FormatR32g32Sfloat},
	}
	if len(attrs) != len(want) {
		t.Fatalf("got %d attributes, want %d: %+v", len(attrs), len(want), attrs)
	}
	for i, got := range attrs {
		if got != want[i] {
			t.Errorf("attribute %d = %+v, want %+v", i, got, want[i])
		}
	}
}

func TestVertexAttributesIgnoresFragmentEntryPoint(t *testing.T) {
	a := spirvtest.New()
	f32 := a.Float()
	vec2 := a.Vector(f32, 2)
	vec3 := a.Vector(f32, 3)
	vec4 := a.Vector(f32, 4)

	vs, fs := a.NextID(), a.NextID()
	pos := a.Input("inPosition", vec3, 0)
	uv := a.Input("inUV", vec2, 1)
	vsOut := a.Output("vColor", vec4, 0)
	fsIn := a.Input("fColor", vec4, 0)
	fsExtra := a.Input("fUV", vec2, 1)
	fsOut := a.Output("outColor", vec4, 0)
	a.EntryPoint(spirv.ExecutionModelVertex, vs, "vs_main", pos, uv, vsOut)
	a.EntryPoint(spirv.ExecutionModelFragment, fs, "fs_main", fsIn, fsExtra, fsOut)

	m, err := spirv.Parse(a.Words())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	attrs, err := vertexAttributes(m)
	if err != nil {
		t.Fatalf("vertexAttributes: %v", err)
	}
	want := []VertexAttribute{
		{Location: 0, Format: vk.FormatR32g32b32Sfloat},
		{Location: 1, Format: vk.FormatR32g32Sfloat},
	}
	if len(attrs) != len(want) {
		t.Fatalf("got %+v, want %+v", attrs, want)
	}
	for i := range want {
		if attrs[i] != want[i] {
			t.Errorf("attribute %d = %+v, want %+v", i, attrs[i], want[i])
		}
	}
}

func TestVertexAttributesDuplicateLocation(t *testing.T) {
	a := spirvtest.New()
	f32 := a.Float()
	vec3 := a.Vector(f32, 3)
	a.Input("inNormal", vec3, 2)
	a.Input("inTangent", vec3, 2)

	m, err := spirv.Parse(a.Words())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = vertexAttributes(m)
	if !errors.Is(err, ErrDuplicateLocation) {
		t.Fatalf("err = %v, want ErrDuplicateLocation", err)
	}
	if !strings.Contains(err.Error(), "2") {
		t.Errorf("error %q does not name location 2", err)
	}
}

func TestVertexAttributesDuplicateOutput(t *testing.T) {
	a := spirvtest.New()
	f32 := a.Float()
	vec4 := a.Vector(f32, 4)
	a.Input("inPosition", vec4, 0)
	a.Output("outA", vec4, 1)
	a.Output("outB", vec4, 1)

	m, err := spirv.Parse(a.Words())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := vertexAttributes(m); !errors.Is(err, ErrDuplicateLocation) {
		t.Errorf("err = %v, want ErrDuplicateLocation", err)
	}
}

func TestVertexAttributesUnsupportedType(t *testing.T) {
	a := spirvtest.New()
	f64 := a.NextID()
	a.Op(spirv.OpTypeFloat, f64, 64)
	a.Input("inPrecise", f64, 0)

	m, err := spirv.Parse(a.Words())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := vertexAttributes(m); !errors.Is(err, ErrUnsupportedAttrib) {
		t.Errorf("err = %v, want ErrUnsupportedAttrib", err)
	}
}

func TestPipelineFixedState(t *testing.T) {
	p := &PipelineBuilder{}
	attrs := []VertexAttribute{{Location: 0, Format: vk.FormatR32g32b32Sfloat}}
	p.setFixedState(800, 600, attrs)

	if p.viewport.Width != 800 || p.viewport.Height != 600 || p.viewport.MaxDepth != 1 {
		t.Errorf("viewport = %+v", p.viewport)
	}
	if p.scissor.Extent.Width != 800 || p.scissor.Extent.Height != 600 {
		t.Errorf("scissor = %dx%d", p.scissor.Extent.Width, p.scissor.Extent.Height)
	}
	if p.inputAssembly.Topology != vk.PrimitiveTopologyTriangleList {
		t.Error("topology is not a triangle list")
	}
	if p.rasterizer.PolygonMode != vk.PolygonModeFill ||
		p.rasterizer.CullMode != vk.CullModeFlags(vk.CullModeBackBit) ||
		p.rasterizer.FrontFace != vk.FrontFaceClockwise {
		t.Error("rasterizer must fill, cull back faces and treat clockwise as front")
	}
	if !p.depthStencil.DepthTestEnable.B() || !p.depthStencil.DepthWriteEnable.B() ||
		p.depthStencil.DepthCompareOp != vk.CompareOpLess {
		t.Error("depth test must be on with writes and a less-than compare")
	}
	if p.colorBlendAttachment.BlendEnable.B() {
		t.Error("blending is enabled")
	}
	if p.vertexInputInfo.VertexAttributeDescriptionCount != 1 ||
		p.vertexInputInfo.PVertexAttributeDescriptions[0].Format != vk.FormatR32g32b32Sfloat {
		t.Error("vertex input does not carry the derived attribute")
	}
}

func TestPipelineWithoutDevice(t *testing.T) {
	r := NewCoreResources(nil)
	p, err := NewPipelineBuilder(r)
	if err != nil {
		t.Fatalf("NewPipelineBuilder: %v", err)
	}
	err = p.CreatePipeline(&fakeWindow{width: 640, height: 480}, []string{"a.vert.spv"}, nullRenderPass)
	if !errors.Is(err, ErrMissingHandle) || KindOf(err) != KindState {
		t.Errorf("CreatePipeline = %v, want state ErrMissingHandle", err)
	}
	p.Destroy()
	p.Release()
	p.Release()
	if r.Refs() != 1 {
		t.Errorf("Refs() = %d, want 1", r.Refs())
	}
}
