package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	wavHeaderSize = 44
	bitsPerSample = 16
)

// EncodeWAV 把单声道 float32 样本编码为 16-bit PCM WAV。
func EncodeWAV(samples []float32, sampleRate int) []byte {
	data := Float32ToBytes(samples)
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(data)))

	const channels = 1
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

// WriteWAV 把样本写成 WAV 文件。
func WriteWAV(path string, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("无效的采样率: %d", sampleRate)
	}
	if err := os.WriteFile(path, EncodeWAV(samples, sampleRate), 0644); err != nil {
		return fmt.Errorf("写入 WAV 失败: %w", err)
	}
	return nil
}

// DecodeWAV 读取 16-bit PCM WAV，多声道时只取第一个声道。
// 按 chunk 查找 fmt 和 data，不假设头部固定为 44 字节。
func DecodeWAV(data []byte) ([]float32, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, errors.New("不是 WAV 文件")
	}

	var (
		sampleRate int
		channels   int
		bits       int
		pcm        []byte
	)
	r := bytes.NewReader(data[12:])
	for {
		var id [4]byte
		var size uint32
		if _, err := io.ReadFull(r, id[:]); err != nil {
			break
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			break
		}
		// 流式接口返回的 data 长度可能是 0xFFFFFFFF，按实际剩余字节截断
		if int64(size) > int64(r.Len()) {
			size = uint32(r.Len())
		}
		chunk := make([]byte, size)
		n, _ := io.ReadFull(r, chunk)
		chunk = chunk[:n]

		switch string(id[:]) {
		case "fmt ":
			if len(chunk) < 16 {
				return nil, 0, errors.New("fmt chunk 过短")
			}
			channels = int(binary.LittleEndian.Uint16(chunk[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(chunk[4:8]))
			bits = int(binary.LittleEndian.Uint16(chunk[14:16]))
		case "data":
			pcm = chunk
		}
		if size%2 == 1 {
			r.ReadByte()
		}
	}

	if sampleRate == 0 || pcm == nil {
		return nil, 0, errors.New("WAV 缺少 fmt 或 data")
	}
	if bits != bitsPerSample {
		return nil, 0, fmt.Errorf("不支持的位深: %d", bits)
	}
	if channels > 1 {
		frame := channels * 2
		mono := make([]byte, 0, len(pcm)/channels)
		for i := 0; i+frame <= len(pcm); i += frame {
			mono = append(mono, pcm[i], pcm[i+1])
		}
		pcm = mono
	}
	return BytesToFloat32(pcm), sampleRate, nil
}
