package loader

import (
	"errors"
	"testing"

	"github.com/daimatz/gojvm/internal/classfile"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

func kindOf(t *testing.T, err error) jvmerrors.Kind {
	t.Helper()
	var jerr *jvmerrors.Error
	if !errors.As(err, &jerr) {
		t.Fatalf("expected a *jvmerrors.Error, got %T: %v", err, err)
	}
	return jerr.Kind
}

type fakeSource struct {
	classes map[string]*classfile.ClassFile
	calls   int
}

func (s *fakeSource) Load(name string) (*classfile.ClassFile, error) {
	s.calls++
	return s.classes[name], nil
}

func TestLoaderChainsSourcesInOrder(t *testing.T) {
	first := &fakeSource{classes: map[string]*classfile.ClassFile{}}
	second := &fakeSource{classes: map[string]*classfile.ClassFile{
		"Hello": {Name: "Hello"},
	}}
	l := New(first, second)

	cf, err := l.Resolve("Hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cf.Name != "Hello" {
		t.Errorf("got %q, want Hello", cf.Name)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("expected both sources consulted once, got first=%d second=%d", first.calls, second.calls)
	}
}

func TestLoaderCachesResolvedClasses(t *testing.T) {
	src := &fakeSource{classes: map[string]*classfile.ClassFile{
		"Hello": {Name: "Hello"},
	}}
	l := New(src)

	if _, err := l.Resolve("Hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Resolve("Hello"); err != nil {
		t.Fatal(err)
	}
	if src.calls != 1 {
		t.Errorf("expected a single underlying load, got %d", src.calls)
	}
}

func TestLoaderNotFoundOnAnySource(t *testing.T) {
	l := New(&fakeSource{classes: map[string]*classfile.ClassFile{}})

	_, err := l.Resolve("Missing")
	if err == nil {
		t.Fatal("expected an error for an unresolvable class")
	}
	if kind := kindOf(t, err); kind != jvmerrors.NoClassDefFoundError {
		t.Errorf("got error kind %v, want NoClassDefFoundError", kind)
	}
}

// cyclicSource's Load method reenters the same Loader for the same class
// name, simulating a class whose resolution transitively depends on itself.
type cyclicSource struct {
	loader *Loader
}

func (s *cyclicSource) Load(name string) (*classfile.ClassFile, error) {
	return s.loader.load(name)
}

func TestLoaderDetectsResolutionCycle(t *testing.T) {
	l := New()
	l.sources = []source{&cyclicSource{loader: l}}

	_, err := l.Resolve("Self")
	if err == nil {
		t.Fatal("expected a ClassCircularityError")
	}
	if kind := kindOf(t, err); kind != jvmerrors.ClassCircularityError {
		t.Errorf("got error kind %v, want ClassCircularityError", kind)
	}
}
