// Package audio implements µ-law/G.711 <-> PCM16 conversion and linear
// resampling. Every function here is pure and stateless: same input,
// same output.
package audio

import (
	"encoding/base64"
	"encoding/binary"
)

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// mulawDecodeTable is the standard G.711 256-entry µ-law expansion table.
var mulawDecodeTable = [256]int16{
	-32124, -31100, -30076, -29052, -28028, -27004, -25980, -24956,
	-23932, -22908, -21884, -20860, -19836, -18812, -17788, -16764,
	-15996, -15484, -14972, -14460, -13948, -13436, -12924, -12412,
	-11900, -11388, -10876, -10364, -9852, -9340, -8828, -8316,
	-7932, -7676, -7420, -7164, -6908, -6652, -6396, -6140,
	-5884, -5628, -5372, -5116, -4860, -4604, -4348, -4092,
	-3900, -3772, -3644, -3516, -3388, -3260, -3132, -3004,
	-2876, -2748, -2620, -2492, -2364, -2236, -2108, -1980,
	-1884, -1820, -1756, -1692, -1628, -1564, -1500, -1436,
	-1372, -1308, -1244, -1180, -1116, -1052, -988, -924,
	-876, -844, -812, -780, -748, -716, -684, -652,
	-620, -588, -556, -524, -492, -460, -428, -396,
	-372, -356, -340, -324, -308, -292, -276, -260,
	-244, -228, -212, -196, -180, -164, -148, -132,
	-120, -112, -104, -96, -88, -80, -72, -64, -56, -48, -40, -32, -24, -16, -8, 0,
	32124, 31100, 30076, 29052, 28028, 27004, 25980, 24956,
	23932, 22908, 21884, 20860, 19836, 18812, 17788, 16764,
	15996, 15484, 14972, 14460, 13948, 13436, 12924, 12412,
	11900, 11388, 10876, 10364, 9852, 9340, 8828, 8316,
	7932, 7676, 7420, 7164, 6908, 6652, 6396, 6140,
	5884, 5628, 5372, 5116, 4860, 4604, 4348, 4092,
	3900, 3772, 3644, 3516, 3388, 3260, 3132, 3004,
	2876, 2748, 2620, 2492, 2364, 2236, 2108, 1980,
	1884, 1820, 1756, 1692, 1628, 1564, 1500, 1436,
	1372, 1308, 1244, 1180, 1116, 1052, 988, 924,
	876, 844, 812, 780, 748, 716, 684, 652,
	620, 588, 556, 524, 492, 460, 428, 396,
	372, 356, 340, 324, 308, 292, 276, 260,
	244, 228, 212, 196, 180, 164, 148, 132,
	120, 112, 104, 96, 88, 80, 72, 64, 56, 48, 40, 32, 24, 16, 8, 0,
}

func encodeMulawSample(sample int32) byte {
	sign := byte(0)
	if sample < 0 {
		sign = 0x80
		sample = -sample
	}
	if sample > mulawClip {
		sample = mulawClip
	}
	sample += mulawBias

	exponent := 7
	mask := int32(0x4000)
	for i := 0; i < 8; i++ {
		if sample&mask != 0 {
			break
		}
		exponent--
		mask >>= 1
	}
	mantissa := byte((sample >> (uint(exponent) + 3)) & 0x0F)
	return ^(sign | byte(exponent<<4) | mantissa)
}

// Pcm16ToMulaw encodes 16-bit signed little-endian PCM samples to µ-law.
func Pcm16ToMulaw(pcm []byte) []byte {
	n := len(pcm) / 2
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = encodeMulawSample(int32(sample))
	}
	return out
}

// MulawToPcm16 decodes µ-law bytes to 16-bit signed little-endian PCM.
func MulawToPcm16(mulaw []byte) []byte {
	out := make([]byte, len(mulaw)*2)
	for i, b := range mulaw {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(mulawDecodeTable[b]))
	}
	return out
}

// ResampleLinear resamples 16-bit signed little-endian PCM from fromRate
// to toRate via sample-wise linear interpolation. Output length is
// floor(in_samples * toRate / fromRate). Identity (byte-exact) when
// fromRate == toRate.
func ResampleLinear(data []byte, fromRate, toRate int) []byte {
	if fromRate == toRate {
		return data
	}
	n := len(data) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}

	ratio := float64(fromRate) / float64(toRate)
	newLen := int(float64(n) / ratio)
	out := make([]byte, newLen*2)

	for i := 0; i < newLen; i++ {
		srcIdx := float64(i) * ratio
		idx := int(srcIdx)
		frac := srcIdx - float64(idx)

		var val float64
		if idx+1 < n {
			val = float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac
		} else if idx < n {
			val = float64(samples[idx])
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(val)))
	}
	return out
}

// Base64MulawToPcm16 decodes base64 µ-law at fromRate and resamples to
// toRate PCM16, the convenience wrapper telephony transports use on
// inbound media frames.
func Base64MulawToPcm16(b64 string, fromRate, toRate int) ([]byte, error) {
	mulaw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	pcm := MulawToPcm16(mulaw)
	if fromRate != toRate {
		pcm = ResampleLinear(pcm, fromRate, toRate)
	}
	return pcm, nil
}

// Pcm16ToBase64Mulaw resamples PCM16 from fromRate to toRate, encodes to
// µ-law, and base64s the result, the convenience wrapper telephony
// transports use on outbound audio.
func Pcm16ToBase64Mulaw(pcm []byte, fromRate, toRate int) string {
	if fromRate != toRate {
		pcm = ResampleLinear(pcm, fromRate, toRate)
	}
	mulaw := Pcm16ToMulaw(pcm)
	return base64.StdEncoding.EncodeToString(mulaw)
}
