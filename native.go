package gstview

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
)

var (
	gstOnce    sync.Once
	gstHandle  uintptr
	gstLibName string
	gstVersion string
	gstInitErr error
)

// loadGStreamer opens the GStreamer core library once per process.
func loadGStreamer() error {
	gstOnce.Do(func() {
		loader := NewNativeLoader()
		gstHandle, gstLibName, gstInitErr = loader.Load("gstreamer-1.0")
		if gstInitErr != nil {
			return
		}

		sym, err := lookupSymbol(gstHandle, "gst_version_string")
		if err != nil {
			gstInitErr = errors.Wrapf(err, "%s: gst_version_string", gstLibName)
			return
		}
		ptr := callSymbol(sym)
		gstVersion = goStringFromPtr(ptr)

		// The string is allocated with g_malloc.
		if glib, _, err := loader.Load("glib-2.0"); err == nil {
			if free, err := lookupSymbol(glib, "g_free"); err == nil {
				callSymbol(free, ptr)
			}
		}
		log.Debug("Loaded %s: %s", gstLibName, gstVersion)
	})
	return gstInitErr
}

// NativeVersion returns the version string of the GStreamer runtime, e.g.
// "GStreamer 1.22.0".
func NativeVersion() (string, error) {
	if err := loadGStreamer(); err != nil {
		return "", err
	}
	return gstVersion, nil
}

// NativeLibrary returns the file name the GStreamer core library was
// loaded from.
func NativeLibrary() (string, error) {
	if err := loadGStreamer(); err != nil {
		return "", err
	}
	return gstLibName, nil
}

// IsGStreamerAvailable reports whether the GStreamer runtime can be loaded.
func IsGStreamerAvailable() bool {
	return loadGStreamer() == nil
}

// goStringFromPtr converts a C string pointer to a Go string.
func goStringFromPtr(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	p := unsafe.Pointer(ptr)
	var length int
	for *(*byte)(unsafe.Add(p, length)) != 0 {
		length++
		if length > 1024 { // Safety limit
			break
		}
	}
	return string(unsafe.Slice((*byte)(p), length))
}
