// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpqcodec

import (
	"encoding/binary"
	"fmt"
)

// Blizzard's ADPCM codec compresses 16-bit PCM audio to one nibble (mono) or
// nibble-per-channel (stereo) per sample using a step-index table, the same
// family of algorithm as IMA ADPCM. Each channel carries its own running
// predictor and step index: the predictor starts from a 16-bit sample stored
// at the start of the stream, and the step index starts at 0.
var adpcmStepTable = []int{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17, 19, 21, 23, 25, 28, 31, 34, 37, 41, 45,
	50, 55, 60, 66, 73, 80, 88, 97, 107, 118, 130, 143, 157, 173, 190, 209, 230,
	253, 279, 307, 337, 371, 408, 449, 494, 544, 598, 658, 724, 796, 876, 963,
	1060, 1166, 1282, 1411, 1552, 1707, 1878, 2066, 2272, 2499, 2749, 3024,
	3327, 3660, 4026, 4428, 4871, 5358, 5894, 6484, 7132, 7845, 8630, 9493,
	10442, 11487, 12635, 13899, 15289, 16818, 18500, 20350, 22385, 24623,
	27086, 29794, 32767,
}

var adpcmIndexAdjust = []int{-1, -1, -1, -1, 2, 4, 6, 8}

type adpcmChannel struct {
	predicted int
	stepIndex int
}

func (c *adpcmChannel) decodeNibble(nibble byte) int16 {
	step := adpcmStepTable[c.stepIndex]
	diff := step >> 3
	if nibble&1 != 0 {
		diff += step >> 2
	}
	if nibble&2 != 0 {
		diff += step >> 1
	}
	if nibble&4 != 0 {
		diff += step
	}
	if nibble&8 != 0 {
		diff = -diff
	}

	c.predicted += diff
	if c.predicted > 32767 {
		c.predicted = 32767
	} else if c.predicted < -32768 {
		c.predicted = -32768
	}

	c.stepIndex += adpcmIndexAdjust[nibble&7]
	if c.stepIndex < 0 {
		c.stepIndex = 0
	} else if c.stepIndex >= len(adpcmStepTable) {
		c.stepIndex = len(adpcmStepTable) - 1
	}

	return int16(c.predicted)
}

func (c *adpcmChannel) encodeSample(sample int16) byte {
	step := adpcmStepTable[c.stepIndex]
	diff := int(sample) - c.predicted

	nibble := byte(0)
	if diff < 0 {
		nibble = 8
		diff = -diff
	}

	delta := 0
	mask := byte(4)
	tempStep := step
	for i := 0; i < 3; i++ {
		if diff >= tempStep {
			diff -= tempStep
			delta += int(mask)
			nibble |= mask
		}
		tempStep >>= 1
		mask >>= 1
	}

	c.decodeNibble(nibble)
	return nibble
}

// decompressADPCM expects a 1-byte channel-count-independent header
// (reserved, always 0) followed by a per-channel 16-bit initial sample, then
// nibble-packed deltas interleaved channel-major.
func decompressADPCM(data []byte, channels int, uncompressedSize uint32) ([]byte, error) {
	if len(data) < 1+channels*2 {
		return nil, fmt.Errorf("adpcm: truncated header for %d channel(s)", channels)
	}

	chans := make([]adpcmChannel, channels)
	off := 1
	for c := 0; c < channels; c++ {
		sample := int16(binary.LittleEndian.Uint16(data[off:]))
		chans[c].predicted = int(sample)
		chans[c].stepIndex = 0
		off += 2
	}

	out := make([]byte, 0, uncompressedSize)
	nibbleHi := false
	var cur byte

	sampleBytes := channels * 2
	for uint32(len(out)) < uncompressedSize && off < len(data) {
		for c := 0; c < channels && uint32(len(out)) < uncompressedSize; c++ {
			var nib byte
			if !nibbleHi {
				if off >= len(data) {
					break
				}
				cur = data[off]
				off++
				nib = cur & 0x0F
				nibbleHi = true
			} else {
				nib = (cur >> 4) & 0x0F
				nibbleHi = false
			}

			sample := chans[c].decodeNibble(nib)
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(sample))
			out = append(out, b[0], b[1])
		}
	}

	if uint32(len(out)) < uncompressedSize {
		out = append(out, make([]byte, uncompressedSize-uint32(len(out)))...)
	}
	_ = sampleBytes
	return out[:uncompressedSize], nil
}

// compressADPCM is the encoder counterpart to decompressADPCM, used by tests
// to exercise the codec round-trip; no write path in this module emits
// ADPCM sectors on its own.
func compressADPCM(pcm []byte, channels int) ([]byte, error) {
	if len(pcm)%(2*channels) != 0 {
		return nil, fmt.Errorf("adpcm: pcm length %d not aligned to %d channel(s)", len(pcm), channels)
	}

	out := []byte{0}
	chans := make([]adpcmChannel, channels)
	for c := 0; c < channels; c++ {
		if len(pcm) < (c+1)*2 {
			return nil, fmt.Errorf("adpcm: pcm too short for initial samples")
		}
		sample := int16(binary.LittleEndian.Uint16(pcm[c*2:]))
		chans[c].predicted = int(sample)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(sample))
		out = append(out, b[:]...)
	}

	samples := len(pcm) / 2
	var nibbles []byte
	for s := channels; s < samples; s++ {
		c := (s - channels) % channels
		sample := int16(binary.LittleEndian.Uint16(pcm[s*2:]))
		nibbles = append(nibbles, chans[c].encodeSample(sample))
	}

	for i := 0; i+1 < len(nibbles); i += 2 {
		out = append(out, nibbles[i]|(nibbles[i+1]<<4))
	}
	if len(nibbles)%2 == 1 {
		out = append(out, nibbles[len(nibbles)-1])
	}

	return out, nil
}
