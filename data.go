package vkgc

import (
	"unsafe"
)

type IndexSliceUint16 []uint16

func (i IndexSliceUint16) Bytes() []byte {
	return SliceBytes(i)
}

func (i IndexSliceUint16) IndexType() IndexType {
	return IndexTypeUint16
}

type IndexSliceUint32 []uint32

func (i IndexSliceUint32) Bytes() []byte {
	return SliceBytes(i)
}

func (i IndexSliceUint32) IndexType() IndexType {
	return IndexTypeUint32
}

// SliceBytes views the backing array of s as bytes without copying. T must
// not contain pointers.
func SliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return ToBytes(unsafe.Pointer(&s[0]), len(s)*int(unsafe.Sizeof(zero)))
}
