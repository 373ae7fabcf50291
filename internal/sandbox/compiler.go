package sandbox

import (
	"path"

	"submission-judge/internal/diagnostics"
)

// Language is the identifier a submission declares for its source code.
type Language string

const (
	Cpp        Language = "cpp"
	C          Language = "c"
	Java       Language = "java"
	Python     Language = "python"
	JavaScript Language = "javascript"
	CSharp     Language = "csharp"
)

// MountPoint is where the scratch directory is mounted inside the container.
const MountPoint = "/sandbox"

type LanguageCompiler struct {
	// Human readable name of the language, e.g. C++.
	Language string
	// If submissions in this language have an execution path. Languages
	// without one are accepted by the api but rejected before judging.
	Judged bool
	// Name of the docker image that is built for this toolchain.
	VirtualMachineName string
	// The file the source code is written to inside the scratch directory.
	SourceFile string
	// The file the compiler writes the executable to inside the scratch directory.
	BinaryFile string
	// Grammar used to parse compiler diagnostics.
	Tool diagnostics.Tool
	// Base image and compile command, fixed so compiling the same source twice
	// yields the same diagnostics.
	baseImage    string
	compileSteps []string
}

// CompileCommand returns the compiler invocation inside the container.
func (c *LanguageCompiler) CompileCommand() []string {
	return append([]string{}, c.compileSteps...)
}

// RunCommand returns the invocation of the compiled binary inside the container.
func (c *LanguageCompiler) RunCommand() []string {
	return []string{path.Join(MountPoint, c.BinaryFile)}
}

var Compilers = map[Language]*LanguageCompiler{
	Cpp: {
		Language:           "C++",
		Judged:             true,
		VirtualMachineName: "judge_sandbox_cpp",
		SourceFile:         "main.cpp",
		BinaryFile:         "main",
		Tool:               diagnostics.GCC,
		baseImage:          "gcc:13",
		compileSteps: []string{
			"g++", "-std=gnu++17", "-O2", "-pipe",
			"-fdiagnostics-color=never", "-fno-diagnostics-show-caret",
			"-o", MountPoint + "/main", MountPoint + "/main.cpp",
		},
	},
	C:          {Language: "C"},
	Java:       {Language: "Java"},
	Python:     {Language: "Python"},
	JavaScript: {Language: "JavaScript"},
	CSharp:     {Language: "C#"},
}

// Judged reports if the language has a real execution path.
func Judged(language Language) bool {
	compiler, ok := Compilers[language]
	return ok && compiler.Judged
}
