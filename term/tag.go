package term

import "fmt"

// Tag identifies the variant of a Term word.
type Tag uint64

// Header tags (6 bits, primary tag 00).
const (
	TagArity                  Tag = 0b0000_00
	TagBinaryAggregate        Tag = 0b0001_00
	TagPositiveBigNumber      Tag = 0b0010_00
	TagNegativeBigNumber      Tag = 0b0011_00
	TagReference              Tag = 0b0100_00
	TagFunction               Tag = 0b0101_00
	TagFloat                  Tag = 0b0110_00
	TagExport                 Tag = 0b0111_00
	TagReferenceCountedBinary Tag = 0b1000_00
	TagHeapBinary             Tag = 0b1001_00
	TagSubbinary              Tag = 0b1010_00
	TagExternalPid            Tag = 0b1100_00
	TagExternalPort           Tag = 0b1101_00
	TagExternalReference      Tag = 0b1110_00
	TagMap                    Tag = 0b1111_00
)

// Pointer tags (2 bits).
const (
	TagList  Tag = 0b01
	TagBoxed Tag = 0b10
)

// Immediate tags (4 and 6 bits, primary tag 11).
const (
	TagLocalPid     Tag = 0b00_11
	TagLocalPort    Tag = 0b01_11
	TagAtom         Tag = 0b00_10_11
	TagCatchPointer Tag = 0b01_10_11
	TagEmptyList    Tag = 0b11_10_11
	TagSmallInteger Tag = 0b11_11
)

const (
	primaryTagMask    = 0b11
	headerPrimaryTag  = 0b00
	headerTagMask     = 0b1111_11
	immediateTagMask  = 0b11_11
	immediate6Class   = 0b10_11
	immediate6TagMask = 0b11_11_11

	headerTagBits     = 6
	immediateTagBits  = 4
	immediate6TagBits = 6
)

var tagNames = map[Tag]string{
	TagArity:                  "Arity",
	TagBinaryAggregate:        "BinaryAggregate",
	TagPositiveBigNumber:      "PositiveBigNumber",
	TagNegativeBigNumber:      "NegativeBigNumber",
	TagReference:              "Reference",
	TagFunction:               "Function",
	TagFloat:                  "Float",
	TagExport:                 "Export",
	TagReferenceCountedBinary: "ReferenceCountedBinary",
	TagHeapBinary:             "HeapBinary",
	TagSubbinary:              "Subbinary",
	TagExternalPid:            "ExternalPid",
	TagExternalPort:           "ExternalPort",
	TagExternalReference:      "ExternalReference",
	TagMap:                    "Map",
	TagList:                   "List",
	TagBoxed:                  "Boxed",
	TagLocalPid:               "LocalPid",
	TagLocalPort:              "LocalPort",
	TagAtom:                   "Atom",
	TagCatchPointer:           "CatchPointer",
	TagEmptyList:              "EmptyList",
	TagSmallInteger:           "SmallInteger",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%#b)", uint64(t))
}

// IsHeader reports whether t is one of the header tags.
func (t Tag) IsHeader() bool {
	return uint64(t)&primaryTagMask == headerPrimaryTag
}

// TagError reports a bit pattern outside the tag space. Decoding one means
// memory has been corrupted; Term.Tag panics with it.
type TagError struct {
	Bits     uint64
	BitCount int
}

func (e *TagError) Error() string {
	return fmt.Sprintf("%0*b is not a valid Term tag", e.BitCount, e.Bits)
}

// decodeTag maps a word to its tag. It is total over the closed tag set:
// every pattern either names exactly one tag or is a *TagError.
func decodeTag(bits uint64) (Tag, error) {
	switch bits & primaryTagMask {
	case headerPrimaryTag:
		tag := Tag(bits & headerTagMask)
		if tag == 0b1011_00 {
			return 0, &TagError{Bits: uint64(tag), BitCount: headerTagBits}
		}
		return tag, nil
	case uint64(TagList):
		return TagList, nil
	case uint64(TagBoxed):
		return TagBoxed, nil
	default:
		switch bits & immediateTagMask {
		case uint64(TagLocalPid):
			return TagLocalPid, nil
		case uint64(TagLocalPort):
			return TagLocalPort, nil
		case immediate6Class:
			switch tag := Tag(bits & immediate6TagMask); tag {
			case TagAtom, TagCatchPointer, TagEmptyList:
				return tag, nil
			default:
				return 0, &TagError{Bits: uint64(tag), BitCount: immediate6TagBits}
			}
		default:
			return TagSmallInteger, nil
		}
	}
}
