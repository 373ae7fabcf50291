package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/namsral/flag"

	"submission-judge/internal/parser"
	"submission-judge/internal/sandbox"
	"submission-judge/internal/svc"
)

var ENDCOLOR = "\033[0m"
var RED = "\033[31m"
var GREEN = "\033[32m"

func main() {
	if runtime.GOOS == "windows" {
		RED = ""
		ENDCOLOR = ""
		GREEN = ""
	}

	var rebuild bool

	flag.BoolVar(&rebuild, "rebuild", false, "build even if the image already exists")
	flag.Parse()

	fmt.Printf("%sBuilding image:%s %s%s%s\n", RED, ENDCOLOR, GREEN, sandbox.Compilers[sandbox.Cpp].VirtualMachineName, ENDCOLOR)

	dockerRuntime, _, err := svc.NewRuntime(parser.Arguments{MaxConcurrentContainers: 1})

	if err != nil {
		fail(err)
	}

	ctx := context.Background()
	defer dockerRuntime.Close(ctx)

	if rebuild {
		err = dockerRuntime.RebuildImage(ctx)
	} else {
		err = dockerRuntime.EnsureImageBuilt(ctx)
	}

	if err != nil {
		fail(err)
	}

	fmt.Printf("%sFinished image:%s %s%s%s\n", RED, ENDCOLOR, GREEN, sandbox.Compilers[sandbox.Cpp].VirtualMachineName, ENDCOLOR)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", RED, err, ENDCOLOR)
	os.Exit(1)
}
