package whisper

import (
	"encoding/binary"
	"math"
	"testing"
)

// buildWAV assembles a minimal RIFF/WAVE file around the given PCM payload.
func buildWAV(t *testing.T, audioFormat, channels, sampleRate, bitsPerSample int, pcm []byte) []byte {
	t.Helper()

	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:2], uint16(audioFormat))
	binary.LittleEndian.PutUint16(fmtChunk[2:4], uint16(channels))
	binary.LittleEndian.PutUint32(fmtChunk[4:8], uint32(sampleRate))
	binary.LittleEndian.PutUint32(fmtChunk[8:12], uint32(sampleRate*channels*bitsPerSample/8))
	binary.LittleEndian.PutUint16(fmtChunk[12:14], uint16(channels*bitsPerSample/8))
	binary.LittleEndian.PutUint16(fmtChunk[14:16], uint16(bitsPerSample))

	var out []byte
	out = append(out, "RIFF"...)
	out = append(out, 0, 0, 0, 0) // placeholder, rewritten below
	out = append(out, "WAVE"...)

	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(fmtChunk)))
	out = append(out, fmtChunk...)

	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pcm)))
	out = append(out, pcm...)

	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out
}

func int16LE(t *testing.T, values ...int16) []byte {
	t.Helper()
	out := make([]byte, 0, len(values)*2)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint16(out, uint16(v))
	}
	return out
}

// ---- decodeWAV tests ----

func TestDecodeWAV_Valid(t *testing.T) {
	want := int16LE(t, 100, -100, 32767, -32768)
	wav := buildWAV(t, 1, 1, 16000, 16, want)

	pcm, rate, channels, err := decodeWAV(wav)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("sampleRate = %d, want 16000", rate)
	}
	if channels != 1 {
		t.Errorf("channels = %d, want 1", channels)
	}
	if len(pcm) != len(want) {
		t.Fatalf("pcm length = %d, want %d", len(pcm), len(want))
	}
	for i := range want {
		if pcm[i] != want[i] {
			t.Fatalf("pcm[%d] = %d, want %d", i, pcm[i], want[i])
		}
	}
}

func TestDecodeWAV_Stereo(t *testing.T) {
	wav := buildWAV(t, 1, 2, 44100, 16, int16LE(t, 1, 2, 3, 4))
	_, rate, channels, err := decodeWAV(wav)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if rate != 44100 || channels != 2 {
		t.Errorf("got rate=%d channels=%d, want 44100/2", rate, channels)
	}
}

func TestDecodeWAV_NotRIFF(t *testing.T) {
	if _, _, _, err := decodeWAV([]byte("OggS_this_is_not_wav_data")); err == nil {
		t.Error("expected error for non-RIFF input")
	}
}

func TestDecodeWAV_CompressedFormatRejected(t *testing.T) {
	// audioFormat 85 = MP3-in-WAV.
	wav := buildWAV(t, 85, 1, 16000, 16, []byte{0, 0})
	if _, _, _, err := decodeWAV(wav); err == nil {
		t.Error("expected error for non-PCM audio format")
	}
}

func TestDecodeWAV_EightBitRejected(t *testing.T) {
	wav := buildWAV(t, 1, 1, 8000, 8, []byte{0x80, 0x80})
	if _, _, _, err := decodeWAV(wav); err == nil {
		t.Error("expected error for 8-bit samples")
	}
}

func TestDecodeWAV_TruncatedDataChunk(t *testing.T) {
	wav := buildWAV(t, 1, 1, 16000, 16, int16LE(t, 1, 2, 3, 4))
	if _, _, _, err := decodeWAV(wav[:len(wav)-3]); err == nil {
		t.Error("expected error for truncated data chunk")
	}
}

// ---- PCM conversion tests ----

func TestPCMToFloat32(t *testing.T) {
	pcm := int16LE(t, 0, 16384, -16384, 32767, -32768)
	samples := pcmToFloat32(pcm)

	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1.0}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(samples), len(want))
	}
	for i := range want {
		if math.Abs(float64(samples[i]-want[i])) > 1e-6 {
			t.Errorf("samples[%d] = %f, want %f", i, samples[i], want[i])
		}
	}
}

func TestPCMToFloat32Mono_AveragesChannels(t *testing.T) {
	// Two frames of stereo: (16384, 0) and (-16384, -16384).
	pcm := int16LE(t, 16384, 0, -16384, -16384)
	mono := pcmToFloat32Mono(pcm, 2)

	if len(mono) != 2 {
		t.Fatalf("got %d samples, want 2", len(mono))
	}
	if math.Abs(float64(mono[0]-0.25)) > 1e-6 {
		t.Errorf("mono[0] = %f, want 0.25", mono[0])
	}
	if math.Abs(float64(mono[1]+0.5)) > 1e-6 {
		t.Errorf("mono[1] = %f, want -0.5", mono[1])
	}
}

// ---- resampling tests ----

func TestResampleLinear_SameRateIsIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := resampleLinear(in, 16000, 16000)
	if len(out) != 3 || out[0] != 0.1 || out[2] != 0.3 {
		t.Errorf("same-rate resample changed data: %v", out)
	}
}

func TestResampleLinear_Downsample(t *testing.T) {
	in := make([]float32, 480)
	out := resampleLinear(in, 48000, 16000)
	if len(out) != 160 {
		t.Errorf("48k->16k of 480 samples gave %d, want 160", len(out))
	}
}

func TestResampleLinear_UpsampleInterpolates(t *testing.T) {
	out := resampleLinear([]float32{0, 1}, 8000, 16000)
	if len(out) != 4 {
		t.Fatalf("8k->16k of 2 samples gave %d, want 4", len(out))
	}
	if math.Abs(float64(out[1]-0.5)) > 1e-6 {
		t.Errorf("out[1] = %f, want 0.5 (midpoint)", out[1])
	}
}

// ---- MIME tests ----

func TestIsWAVMimeType(t *testing.T) {
	for _, mt := range []string{"audio/wav", "audio/x-wav", "Audio/Wave", "audio/wav;rate=16000"} {
		if !isWAVMimeType(mt) {
			t.Errorf("expected %q to be recognised as WAV", mt)
		}
	}
	for _, mt := range []string{"audio/webm", "audio/mpeg", "", "wav"} {
		if isWAVMimeType(mt) {
			t.Errorf("expected %q to be rejected", mt)
		}
	}
}
