package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daimatz/gojvm/internal/loader"
	"github.com/daimatz/gojvm/internal/vm"
)

var (
	classpath string
	javaHome  string
	jmodFlag  string
)

func findJmodPath() string {
	if jmodFlag != "" {
		return jmodFlag
	}
	if env := os.Getenv("JAVA_BASE_JMOD"); env != "" {
		return env
	}
	home := javaHome
	if home == "" {
		home = os.Getenv("JAVA_HOME")
	}
	if home != "" {
		p := filepath.Join(home, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

func runClass(cmd *cobra.Command, args []string) error {
	filename := args[0]
	dir := filepath.Dir(filename)
	if classpath != "" {
		dir = classpath
	}
	className := strings.TrimSuffix(filepath.Base(filename), ".class")

	jmodPath := findJmodPath()
	if jmodPath == "" {
		return fmt.Errorf("could not find java.base.jmod: set --java-home, --jmod, or JAVA_HOME")
	}

	bootstrap := loader.NewJmodLoader(jmodPath)
	classpathLoader := loader.NewPathLoader(dir)
	cl := loader.New(bootstrap, classpathLoader)

	machine := vm.New(cl)
	result, err := machine.RunMain(className)
	if err != nil {
		return err
	}
	if result.Threw {
		if inst, ok := machine.Heap.GetInstance(result.ExceptionOffset).Get(); ok && inst.Class != nil {
			return fmt.Errorf("uncaught exception %s", inst.Class.Name)
		}
		return fmt.Errorf("uncaught exception at heap offset %d", result.ExceptionOffset)
	}
	return nil
}

func main() {
	root := &cobra.Command{
		Use:   "gojvm <class>",
		Short: "A minimal JVM class-file decoder and bytecode interpreter",
		Args:  cobra.ExactArgs(1),
		RunE:  runClass,
	}
	root.Flags().StringVar(&classpath, "classpath", "", "directory to resolve user classes from (default: the class file's own directory)")
	root.Flags().StringVar(&javaHome, "java-home", "", "JDK installation to load java.base.jmod from")
	root.Flags().StringVar(&jmodFlag, "jmod", "", "explicit path to java.base.jmod, overriding --java-home")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gojvm: %v\n", err)
		os.Exit(1)
	}
}
