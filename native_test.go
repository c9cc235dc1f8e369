package gstview

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestGoStringFromPtr(t *testing.T) {
	assert.Equal(t, "", goStringFromPtr(0))

	buf := []byte("GStreamer 1.22.0\x00trailing")
	assert.Equal(t, "GStreamer 1.22.0", goStringFromPtr(uintptr(unsafe.Pointer(&buf[0]))))
}

// BenchmarkNativeCallOverhead measures one foreign call into the GStreamer
// core library.
func BenchmarkNativeCallOverhead(b *testing.B) {
	if !IsGStreamerAvailable() {
		b.Skip("GStreamer not available")
	}
	sym, err := lookupSymbol(gstHandle, "gst_version")
	if err != nil {
		b.Skip(err)
	}
	var major, minor, micro, nano uint32
	args := []uintptr{
		uintptr(unsafe.Pointer(&major)),
		uintptr(unsafe.Pointer(&minor)),
		uintptr(unsafe.Pointer(&micro)),
		uintptr(unsafe.Pointer(&nano)),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		callSymbol(sym, args...)
	}
	b.StopTimer()
	if major != 1 {
		b.Errorf("gst_version reported major %d", major)
	}
}

func BenchmarkResolveLibraryName(b *testing.B) {
	DefaultLibraryTable()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Resolve("gstreamer-1.0", PlatformWindows)
	}
}
