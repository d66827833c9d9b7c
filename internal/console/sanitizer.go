package console

const (
	escapeByteConstant             = 0x1b
	sequenceIntroducerConstant     = '['
	sequenceSeparatorConstant      = ';'
	selectGraphicRenditionConstant = 'm'
)

// Sanitize strips cursor movement and line clearing sequences from one captured line.
//
// A CSI sequence terminated by anything other than 'm' is taken to discard what the
// terminal already shows on the line, so the line is cut through its terminator and
// scanning restarts. Color sequences are kept, and an escape whose parameters run to
// the end of the line is left as is.
func Sanitize(line string) string {
	position := 0
	for position < len(line) {
		if line[position] != escapeByteConstant {
			position++
			continue
		}

		terminatorIndex := position + 1
		for terminatorIndex < len(line) && isSequenceParameterByte(line[terminatorIndex]) {
			terminatorIndex++
		}

		switch {
		case terminatorIndex >= len(line):
			position++
		case line[terminatorIndex] == selectGraphicRenditionConstant:
			position = terminatorIndex + 1
		default:
			line = line[terminatorIndex+1:]
			position = 0
		}
	}
	return line
}

func isSequenceParameterByte(candidate byte) bool {
	if candidate == sequenceIntroducerConstant || candidate == sequenceSeparatorConstant {
		return true
	}
	return candidate >= '0' && candidate <= '9'
}
