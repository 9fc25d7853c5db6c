package timekill

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill/logging"
	"github.com/andewx/timekill/spirv"
)

// ShaderBinaryExt marks a precompiled shader binary.
const ShaderBinaryExt = ".spv"

// ShaderStage is the pipeline stage a binary is compiled for.
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageGeometry
	StageTessellationControl
	StageTessellationEvaluation
	StageCompute
	StageRayGeneration
	StageAnyHit
	StageClosestHit
	StageMiss
	StageIntersection
	StageCallable
)

type stageInfo struct {
	suffix string
	name   string
	flag   vk.ShaderStageFlagBits
	model  spirv.ExecutionModel
}

// Ray tracing stage bits come from VK_KHR_ray_tracing_pipeline.
var stages = map[ShaderStage]stageInfo{
	StageVertex:                 {".vert.spv", "vertex", vk.ShaderStageVertexBit, spirv.ExecutionModelVertex},
	StageFragment:               {".frag.spv", "fragment", vk.ShaderStageFragmentBit, spirv.ExecutionModelFragment},
	StageGeometry:               {".geom.spv", "geometry", vk.ShaderStageGeometryBit, spirv.ExecutionModelGeometry},
	StageTessellationControl:    {".tesc.spv", "tessellation control", vk.ShaderStageTessellationControlBit, spirv.ExecutionModelTessellationControl},
	StageTessellationEvaluation: {".tese.spv", "tessellation evaluation", vk.ShaderStageTessellationEvaluationBit, spirv.ExecutionModelTessellationEvaluation},
	StageCompute:                {".comp.spv", "compute", vk.ShaderStageComputeBit, spirv.ExecutionModelGLCompute},
	StageRayGeneration:          {".rgen.spv", "ray generation", vk.ShaderStageFlagBits(0x00000100), spirv.ExecutionModelRayGeneration},
	StageAnyHit:                 {".rahit.spv", "any hit", vk.ShaderStageFlagBits(0x00000200), spirv.ExecutionModelAnyHit},
	StageClosestHit:             {".rchit.spv", "closest hit", vk.ShaderStageFlagBits(0x00000400), spirv.ExecutionModelClosestHit},
	StageMiss:                   {".rmiss.spv", "miss", vk.ShaderStageFlagBits(0x00000800), spirv.ExecutionModelMiss},
	StageIntersection:           {".rint.spv", "intersection", vk.ShaderStageFlagBits(0x00001000), spirv.ExecutionModelIntersection},
	StageCallable:               {".rcall.spv", "callable", vk.ShaderStageFlagBits(0x00002000), spirv.ExecutionModelCallable},
}

func (s ShaderStage) String() string {
	if info, ok := stages[s]; ok {
		return info.name
	}
	return "unknown"
}

// Flag is the Vulkan stage bit of s.
func (s ShaderStage) Flag() vk.ShaderStageFlagBits {
	return stages[s].flag
}

// Suffix is the file name suffix that selects s.
func (s ShaderStage) Suffix() string {
	return stages[s].suffix
}

// ExecutionModel is the SPIR-V execution model of entry points for s.
func (s ShaderStage) ExecutionModel() spirv.ExecutionModel {
	return stages[s].model
}

// ClassifyShader infers the stage of a shader binary from its file name.
func ClassifyShader(filename string) (ShaderStage, error) {
	base := strings.ToLower(filepath.Base(filename))
	for stage, info := range stages {
		if strings.HasSuffix(base, info.suffix) {
			return stage, nil
		}
	}
	return 0, newPathErr(KindValidation, "classify shader", filename, ErrUnknownShaderType)
}

// ShaderBinary is a loaded SPIR-V file.
type ShaderBinary struct {
	Path  string
	Stage ShaderStage
	Data  []byte
	Words []uint32
}

// LoadShaderBinary reads and classifies a SPIR-V file. The byte length must
// be a whole number of 32-bit words.
func LoadShaderBinary(path string) (*ShaderBinary, error) {
	stage, err := ClassifyShader(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newPathErr(KindValidation, "read shader", path, err)
	}
	words, err := spirv.Words(data)
	if err != nil {
		return nil, newPathErr(KindValidation, "read shader", path, err)
	}
	return &ShaderBinary{Path: path, Stage: stage, Data: data, Words: words}, nil
}

// ShaderCatalog finds shader binaries in the configured shader directories.
type ShaderCatalog struct {
	dirs      []string
	recursive bool
}

func NewShaderCatalog(config *Configuration) *ShaderCatalog {
	return &ShaderCatalog{
		dirs:      config.ShaderDirectories(),
		recursive: config.RecursiveShaderSearch,
	}
}

// Directories lists the resolved search directories.
func (c *ShaderCatalog) Directories() []string {
	return c.dirs
}

// Discover lists every shader binary in the catalog's directories.
func (c *ShaderCatalog) Discover() ([]string, error) {
	return DiscoverShaders(c.dirs, c.recursive)
}

// DiscoverShaders collects *.spv files under dirs, sorted by path. Missing
// directories are logged and skipped.
func DiscoverShaders(dirs []string, recursive bool) ([]string, error) {
	var found []string
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logging.Warn("shader: directory %s does not exist, skipping", dir)
				continue
			}
			return nil, errors.Wrapf(err, "stat shader directory %s", dir)
		}
		if !info.IsDir() {
			logging.Warn("shader: %s is not a directory, skipping", dir)
			continue
		}
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != dir && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ShaderBinaryExt) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walk shader directory %s", dir)
		}
	}
	sort.Strings(found)
	logging.Debug("shader: discovered %d binaries", len(found))
	return found, nil
}

// createShaderModule hands words to the driver.
func createShaderModule(device vk.Device, words []uint32) (vk.ShaderModule, error) {
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(words) * 4),
		PCode:    words,
	}, nil, &module)
	if err := newError(ret); err != nil {
		return vk.NullShaderModule, err
	}
	return module, nil
}
