package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

// DecodeWAVFile reads a RIFF/WAVE file and returns its contents as mono
// float32 samples plus the file's sample rate. Multi-channel audio is
// downmixed by averaging. Supported encodings are PCM 8/16/24/32 and IEEE
// float 32/64.
func DecodeWAVFile(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	return DecodeWAV(f)
}

// DecodeWAV reads a RIFF/WAVE stream. See DecodeWAVFile.
func DecodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return nil, 0, fmt.Errorf("read wav header: %w", err)
	}

	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, 0, ErrInvalidWAV
	}

	var (
		audioFormat   uint16
		channels      uint16
		sampleRate    uint32
		bitsPerSample uint16
		data          []byte
		hasFmt        bool
		hasData       bool
	)

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(r, chunkHeader); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, 0, fmt.Errorf("read wav chunk header: %w", err)
		}

		chunkID := string(chunkHeader[:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		padded := int64(chunkSize)
		if chunkSize%2 != 0 {
			padded++
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, ErrInvalidWAV
			}

			buf := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, 0, fmt.Errorf("read wav fmt chunk: %w", err)
			}

			audioFormat = binary.LittleEndian.Uint16(buf[0:2])
			channels = binary.LittleEndian.Uint16(buf[2:4])
			sampleRate = binary.LittleEndian.Uint32(buf[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(buf[14:16])
			hasFmt = true

			if chunkSize%2 != 0 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return nil, 0, fmt.Errorf("seek wav fmt padding: %w", err)
				}
			}
		case "data":
			data = make([]byte, chunkSize)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, 0, fmt.Errorf("read wav data: %w", err)
			}
			hasData = true

			if chunkSize%2 != 0 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return nil, 0, fmt.Errorf("seek wav data padding: %w", err)
				}
			}
		default:
			if _, err := r.Seek(padded, io.SeekCurrent); err != nil {
				return nil, 0, fmt.Errorf("seek wav chunk %s: %w", chunkID, err)
			}
		}
	}

	if !hasFmt || !hasData {
		return nil, 0, ErrInvalidWAV
	}

	if err := validateFormat(audioFormat, bitsPerSample); err != nil {
		return nil, 0, err
	}

	if channels == 0 {
		channels = 1
	}

	samples, err := decodeSamples(data, audioFormat, bitsPerSample)
	if err != nil {
		return nil, 0, err
	}

	return Downmix(samples, int(channels)), int(sampleRate), nil
}

// EncodeWAV writes mono float32 samples as a 16-bit PCM RIFF/WAVE stream.
func EncodeWAV(w io.Writer, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	const (
		channels       = 1
		bytesPerSample = 2
		fmtChunkSize   = 16
	)

	dataSize := len(samples) * bytesPerSample
	riffSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)

	bw := bufio.NewWriter(w)

	writeString := func(s string) { _, _ = bw.WriteString(s) }
	writeU16 := func(v uint16) {
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], v)
		_, _ = bw.Write(buf[:])
	}
	writeU32 := func(v uint32) {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], v)
		_, _ = bw.Write(buf[:])
	}

	writeString("RIFF")
	writeU32(uint32(riffSize))
	writeString("WAVE")

	writeString("fmt ")
	writeU32(fmtChunkSize)
	writeU16(1) // PCM
	writeU16(channels)
	writeU32(uint32(sampleRate))
	writeU32(uint32(sampleRate * channels * bytesPerSample))
	writeU16(channels * bytesPerSample)
	writeU16(16)

	writeString("data")
	writeU32(uint32(dataSize))

	for _, s := range samples {
		clamped := math.Max(-1, math.Min(1, float64(s)))
		// Symmetric with the decoder's 1/32768 scale so a round trip
		// stays within half an LSB.
		v := math.Round(clamped * 32768)
		if v > 32767 {
			v = 32767
		}
		writeU16(uint16(int16(v)))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}

// WriteWAVFile writes mono float32 samples to a 16-bit PCM WAV file.
func WriteWAVFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	if err := EncodeWAV(f, samples, sampleRate); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}

func validateFormat(audioFormat, bitsPerSample uint16) error {
	switch audioFormat {
	case 1:
		switch bitsPerSample {
		case 8, 16, 24, 32:
			return nil
		}
	case 3:
		switch bitsPerSample {
		case 32, 64:
			return nil
		}
	}
	return ErrUnsupportedWAV
}

func decodeSamples(data []byte, audioFormat, bitsPerSample uint16) ([]float32, error) {
	bytesPerSample := int(bitsPerSample / 8)
	if bytesPerSample <= 0 {
		return nil, ErrUnsupportedWAV
	}

	samples := make([]float32, 0, len(data)/bytesPerSample)
	for i := 0; i+bytesPerSample <= len(data); i += bytesPerSample {
		value, err := decodeSample(data[i:i+bytesPerSample], audioFormat, bitsPerSample)
		if err != nil {
			return nil, err
		}
		samples = append(samples, value)
	}

	return samples, nil
}

func decodeSample(sample []byte, audioFormat, bitsPerSample uint16) (float32, error) {
	if audioFormat == 3 {
		switch bitsPerSample {
		case 32:
			bits := binary.LittleEndian.Uint32(sample)
			return math.Float32frombits(bits), nil
		case 64:
			bits := binary.LittleEndian.Uint64(sample)
			return float32(math.Float64frombits(bits)), nil
		default:
			return 0, ErrUnsupportedWAV
		}
	}

	switch bitsPerSample {
	case 8:
		return (float32(sample[0]) - 128.0) / 128.0, nil
	case 16:
		v := int16(binary.LittleEndian.Uint16(sample))
		return float32(v) / 32768.0, nil
	case 24:
		v := int32(sample[0]) | int32(sample[1])<<8 | int32(sample[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float32(v) / 8388608.0, nil
	case 32:
		v := int32(binary.LittleEndian.Uint32(sample))
		return float32(v) / 2147483648.0, nil
	default:
		return 0, ErrUnsupportedWAV
	}
}
