package polyrender

import (
	"errors"
	"sync"
	"testing"
)

func TestCacheIdempotence(t *testing.T) {
	engine := NewWithOptions()
	source := `<root><template><div>{{foo}}</div></template></root>`

	first, err := engine.Compile(source, OutputString)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	second, err := engine.Compile(source, OutputString)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if first != second {
		t.Error("compiling identical source twice returned different templates")
	}

	tree, err := engine.Compile(source, OutputTree)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if tree == first {
		t.Error("tree and string templates should be distinct routines")
	}
	if tree.Program() != first.Program() {
		t.Error("output modes of one source should share the compiled program")
	}
	if engine.Cache().Size() != 1 {
		t.Errorf("Cache().Size() = %d, want 1", engine.Cache().Size())
	}
}

func TestCacheKeyIsExactSource(t *testing.T) {
	engine := NewWithOptions()
	a, _ := engine.Compile(`<root><template><p>x</p></template></root>`, OutputString)
	b, _ := engine.Compile(`<root><template><p>x</p></template></root> `, OutputString)
	if a == b {
		t.Error("sources differing by whitespace should not share a template")
	}
	if !engine.Cache().Contains(`<root><template><p>x</p></template></root>`) {
		t.Error("Contains() = false for a compiled source")
	}
}

func TestCacheStalePartial(t *testing.T) {
	engine := NewWithOptions()
	engine.RegisterElement("my-tag", `<b>v1</b>`, nil)

	source := `<root><template><my-tag></my-tag></template></root>`
	before, _ := engine.Compile(source, OutputString)

	engine.RegisterElement("my-tag", `<b>v2</b>`, nil)
	after, _ := engine.Compile(source, OutputString)

	if before != after {
		t.Fatal("re-registration should not invalidate cached templates")
	}
	got, err := after.RenderString(nil)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if got != "<b>v1</b>" {
		t.Errorf("RenderString() = %q, want the source captured at compile time", got)
	}

	// a template compiled for the first time after re-registration sees the new source
	fresh, _ := engine.Compile(source+" ", OutputString)
	if got, _ := fresh.RenderString(nil); got != "<b>v2</b>" {
		t.Errorf("fresh RenderString() = %q, want %q", got, "<b>v2</b>")
	}
}

func TestCacheVersioned(t *testing.T) {
	engine := NewWithOptions(WithVersionedCache(true))
	engine.RegisterElement("my-tag", `<b>v1</b>`, nil)

	source := `<root><template><my-tag></my-tag></template></root>`
	before, _ := engine.Compile(source, OutputString)

	engine.RegisterElement("my-tag", `<b>v2</b>`, nil)
	after, _ := engine.Compile(source, OutputString)

	if before == after {
		t.Fatal("versioned cache should recompile after re-registration")
	}
	if got, _ := after.RenderString(nil); got != "<b>v2</b>" {
		t.Errorf("RenderString() = %q, want %q", got, "<b>v2</b>")
	}
	if got, _ := before.RenderString(nil); got != "<b>v1</b>" {
		t.Errorf("old template RenderString() = %q, want %q", got, "<b>v1</b>")
	}
}

func TestCacheClear(t *testing.T) {
	engine := NewWithOptions()
	source := `<p>{{x}}</p>`
	before, _ := engine.Compile(source, OutputString)

	engine.ClearCache()
	if engine.Cache().Size() != 0 {
		t.Errorf("Size() after Clear = %d", engine.Cache().Size())
	}

	after, _ := engine.Compile(source, OutputString)
	if before == after {
		t.Error("Clear() should drop compiled templates")
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	cache := NewTemplateCache()
	key := cacheKey{source: "bad"}
	calls := 0

	compile := func() (*Program, error) {
		calls++
		return nil, errors.New("bad source")
	}

	for i := 0; i < 2; i++ {
		if _, _, err := cache.getOrCompile(key, compile); err == nil {
			t.Fatal("getOrCompile() expected error")
		}
	}
	if calls != 2 || cache.Size() != 0 {
		t.Errorf("calls = %d, size = %d; failed compiles must not be cached", calls, cache.Size())
	}
}

func TestCacheConcurrentFirstStoreWins(t *testing.T) {
	cache := NewTemplateCache()
	key := cacheKey{source: "<p></p>"}

	var wg sync.WaitGroup
	entries := make([]*cacheEntry, 16)
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, _, err := cache.getOrCompile(key, func() (*Program, error) {
				return &Program{}, nil
			})
			if err != nil {
				t.Error(err)
				return
			}
			entries[i] = entry
		}(i)
	}
	wg.Wait()

	for _, e := range entries[1:] {
		if e != entries[0] {
			t.Fatal("concurrent compiles returned different entries")
		}
	}
}
