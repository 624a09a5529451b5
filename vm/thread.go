package vm

import "fmt"

// ThreadState is the execution state published in the thread record.
// Stack-scanning threads read it concurrently.
type ThreadState uint32

// Thread states.
const (
	ThreadUninitialized ThreadState = 0
	ThreadNew           ThreadState = 2
	ThreadInNative      ThreadState = 4
	ThreadInNativeTrans ThreadState = 5
	ThreadInVM          ThreadState = 6
	ThreadInVMTrans     ThreadState = 7
	ThreadInJava        ThreadState = 8
	ThreadInJavaTrans   ThreadState = 9
	ThreadBlocked       ThreadState = 10
)

var threadStateNames = map[ThreadState]string{
	ThreadUninitialized: "uninitialized",
	ThreadNew:           "new",
	ThreadInNative:      "in_native",
	ThreadInNativeTrans: "in_native_trans",
	ThreadInVM:          "in_vm",
	ThreadInVMTrans:     "in_vm_trans",
	ThreadInJava:        "in_java",
	ThreadInJavaTrans:   "in_java_trans",
	ThreadBlocked:       "blocked",
}

func (s ThreadState) String() string {
	if n, ok := threadStateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// ThreadLayout gives the byte offsets of the thread record fields that
// generated code touches. Offsets are relative to the thread register.
type ThreadLayout struct {
	State            int64 // u32 ThreadState
	SuspendFlags     int64 // u32
	PendingException int64
	ActiveHandles    int64 // address of the current handle block
	StackLimit       int64 // lowest usable sp
	LastJavaSP       int64
	LastJavaFP       int64
	LastJavaPC       int64
	JNIEnvironment   int64 // the env is embedded; its address is passed
	PollingWord      int64

	// HandleBlockTop is the offset of the top index inside a handle block.
	HandleBlockTop int64
}

// DefaultThreadLayout is the layout of the reference runtime.
func DefaultThreadLayout() ThreadLayout {
	return ThreadLayout{
		State:            0,
		SuspendFlags:     4,
		PendingException: 8,
		ActiveHandles:    16,
		StackLimit:       24,
		LastJavaSP:       32,
		LastJavaFP:       40,
		LastJavaPC:       48,
		JNIEnvironment:   56,
		PollingWord:      64,
		HandleBlockTop:   0,
	}
}

// Fields returns every offset with its configuration name.
func (l *ThreadLayout) Fields() []LayoutField {
	return []LayoutField{
		{"state", &l.State, 4},
		{"suspend-flags", &l.SuspendFlags, 4},
		{"pending-exception", &l.PendingException, 8},
		{"active-handles", &l.ActiveHandles, 8},
		{"stack-limit", &l.StackLimit, 8},
		{"last-java-sp", &l.LastJavaSP, 8},
		{"last-java-fp", &l.LastJavaFP, 8},
		{"last-java-pc", &l.LastJavaPC, 8},
		{"jni-environment", &l.JNIEnvironment, 8},
		{"polling-word", &l.PollingWord, 8},
		{"handle-block-top", &l.HandleBlockTop, 4},
	}
}

// Set assigns the offset called name.
func (l *ThreadLayout) Set(name string, off int64) error {
	return setField(l.Fields(), name, off)
}

// Validate checks alignment and immediate range of every field.
func (l ThreadLayout) Validate() error {
	for _, f := range l.Fields() {
		if err := checkField(f.Name, *f.Offset, f.Size); err != nil {
			return fmt.Errorf("thread layout: %w", err)
		}
	}
	return nil
}
