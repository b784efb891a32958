// Package audio 提供 PCM 样本转换、MP3 解码和 WAV 读写。
// 各 TTS 引擎统一输出单声道 float32 样本，落盘时再编码为 16-bit WAV。
package audio

import (
	"encoding/binary"
	"math"
)

// BytesToFloat32 将 16-bit LE 单声道 PCM 字节转换为 [-1.0, 1.0] 的 float32 样本。
// 奇数长度时忽略最后一个字节。
func BytesToFloat32(b []byte) []float32 {
	n := len(b) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(b[2*i:]))
		out[i] = float32(s) / math.MaxInt16
	}
	return out
}

// Float32ToBytes 将 float32 样本转换为 16-bit LE PCM 字节，超出 [-1.0, 1.0] 的值被钳位。
func Float32ToBytes(in []float32) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(clampToInt16(s)))
	}
	return out
}

func clampToInt16(s float32) int16 {
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	return int16(s * math.MaxInt16)
}

// StereoToMono 将 16-bit LE 立体声 PCM 转为单声道 float32，左右声道取平均。
// 不完整的尾部帧被丢弃。
func StereoToMono(pcm []byte) []float32 {
	const bytesPerFrame = 4
	numFrames := len(pcm) / bytesPerFrame
	samples := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		offset := i * bytesPerFrame
		left := int16(binary.LittleEndian.Uint16(pcm[offset : offset+2]))
		right := int16(binary.LittleEndian.Uint16(pcm[offset+2 : offset+4]))
		samples[i] = (float32(left) + float32(right)) / 2.0 / 32768.0
	}
	return samples
}
