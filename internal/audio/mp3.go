package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 将 MP3 数据解码为单声道 float32 样本。
// go-mp3 总是输出 16-bit 立体声 PCM。
func DecodeMP3(data []byte) ([]float32, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("MP3 数据为空")
	}
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("MP3 解码失败: %w", err)
	}
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("读取 PCM 数据失败: %w", err)
	}
	return StereoToMono(pcm), decoder.SampleRate(), nil
}
