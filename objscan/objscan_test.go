package objscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultFormat(t *testing.T) {
	assert.Equal(t, FormatELF, DefaultFormat("linux"))
	assert.Equal(t, FormatMachO, DefaultFormat("darwin"))
	assert.Equal(t, FormatPE, DefaultFormat("windows"))
	assert.Equal(t, Format(""), DefaultFormat("plan9"))
}

func TestDefaultFilter(t *testing.T) {
	elfKeep := DefaultFilter(FormatELF)
	peKeep := DefaultFilter(FormatPE)

	assert.True(t, elfKeep("CRYPTO_memcmp"))
	assert.True(t, elfKeep("p256_mul_mont"))

	// Runtime helpers stay unprefixed.
	assert.False(t, elfKeep("vsnprintf"))
	assert.False(t, elfKeep("sdallocx"))
	assert.False(t, peKeep("__local_stdio_printf_options"))

	// C++ mangling per format.
	assert.False(t, elfKeep("_ZN4ring5innerEv"))
	assert.True(t, peKeep("_ZN4ring5innerEv"))
	assert.False(t, peKeep("?inner@ring@@QEAAXXZ"))

	// PIC thunks and debug artifacts.
	assert.False(t, elfKeep("__x86.get_pc_thunk.bx"))
	assert.False(t, elfKeep("DW.ref.__gxx_personality_v0"))
	assert.False(t, peKeep("__real@3ff0000000000000"))
}

func TestListDefinedUnknownFormat(t *testing.T) {
	_, err := ListDefined([]byte("not an object"), Format("coff"))
	assert.Error(t, err)
}

func TestListDefinedRejectsGarbage(t *testing.T) {
	for _, f := range []Format{FormatELF, FormatMachO, FormatPE} {
		_, err := ListDefined([]byte("definitely not an object file"), f)
		assert.Error(t, err, "format %s", f)
	}
}
