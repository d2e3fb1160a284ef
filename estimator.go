package dwire

// ApproxFactor estimates the width of the pulses in a break response
// relative to the bit period of the trial rate, times 100.
//
// The byte is read from bit 7 down as a run-length sequence. A run longer
// than two bits means the trial rate is too fast by roughly that ratio and
// yields 100*longest-70. Otherwise the result is the mean length of the
// counted runs times 100, where the first completed run is only counted
// when it is longer than one bit. With no counted run the result is 0.
func ApproxFactor(b byte) int {
	current := int(b>>7) & 1
	length := 1
	longest := 1
	avg := -1
	count := 0

	for i := 6; i >= 0; i-- {
		bit := int(b>>i) & 1
		if bit == current {
			length++
			continue
		}

		if longest < length {
			longest = length
		}
		if avg < 0 {
			if length > 1 {
				avg, count = length, 1
			} else {
				avg, count = 0, 0
			}
		} else {
			avg += length
			count++
		}
		current = bit
		length = 1
	}

	if longest < length {
		longest = length
	}
	if length > 1 {
		avg += length
		count++
	}

	if count > 0 {
		avg = (100 * avg) / count
	}

	if longest > 2 {
		return 100*longest - 70
	}
	return avg
}
