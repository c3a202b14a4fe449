package audio

const (
	DefaultSampleRate = 24000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: EncodingLinear16}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

// ByteSize is the size of a single sample, or -1 for unknown formats.
func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

// wavFormatCode is the WAVE format tag of the encoding.
func (e encodingFormat) wavFormatCode() uint16 {
	switch e {
	case EncodingLinear16:
		return 1
	case EncodingALaw:
		return 6
	case EncodingMulaw:
		return 7
	}
	return 0
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
