package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJudged(t *testing.T) {
	tests := []struct {
		language Language
		judged   bool
	}{
		{Cpp, true},
		{C, false},
		{Java, false},
		{Python, false},
		{JavaScript, false},
		{CSharp, false},
		{Language("brainfuck"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.language), func(t *testing.T) {
			assert.Equal(t, tt.judged, Judged(tt.language))
		})
	}
}

func TestCompilerCommands(t *testing.T) {
	compiler := Compilers[Cpp]

	assert.Equal(t, []string{"/sandbox/main"}, compiler.RunCommand())

	command := compiler.CompileCommand()
	assert.Equal(t, "g++", command[0])
	assert.Contains(t, command, "-std=gnu++17")
	assert.Contains(t, command, "-fdiagnostics-color=never")

	command[0] = "clang++"
	assert.Equal(t, "g++", compiler.CompileCommand()[0], "callers get a copy")
}

func TestDockerfile(t *testing.T) {
	assert.Equal(t, "FROM gcc:13\nRUN mkdir -p /sandbox\nWORKDIR /sandbox\n", dockerfile(Compilers[Cpp]))
}
