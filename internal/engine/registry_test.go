package engine

import "testing"

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register(TaskSummarize, fixedHandler(KindSummary, "s"))

	if _, ok := reg.Handler(TaskSummarize); !ok {
		t.Error("registered handler not found")
	}
	if _, ok := reg.Handler(TaskWriteChapter); ok {
		t.Error("lookup of unregistered type succeeded")
	}
	if types := reg.Types(); len(types) != 1 || types[0] != TaskSummarize {
		t.Errorf("types = %v", types)
	}
}

func TestRegistryRejectsNilHandler(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("registering a nil handler did not panic")
		}
	}()
	NewRegistry().Register(TaskSummarize, nil)
}
