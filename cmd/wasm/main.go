//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/himanishpuri/sargam/pkg/sargam/pitch"
	"github.com/himanishpuri/sargam/pkg/sargam/raaga"
	"github.com/himanishpuri/sargam/pkg/sargam/segment"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorPitchTracking
	ErrorSegmentation
	ErrorRaagaDetection
)

const defaultTonic = 131.0

var matcher = raaga.NewMatcher(nil)

// sargamTranscribe tracks pitch in raw samples and transcribes them.
// Arguments: audioArray, sampleRate, channels, tonic (0 or omitted for the
// default Sa).
// Returns: {error: number, data: {swarams, raaga} | string}
func sargamTranscribe(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected at least 3 arguments: audioArray, sampleRate, channels[, tonic]")
	}

	audioDataJS := args[0]
	if audioDataJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray must be an Array or Float64Array")
	}
	if args[1].Type() != js.TypeNumber || args[2].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate and channels must be numbers")
	}

	sampleRate := args[1].Int()
	channels := args[2].Int()
	if sampleRate <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid sample rate: %d", sampleRate))
	}
	if channels < 1 || channels > 2 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Channels must be 1 (mono) or 2 (stereo), got: %d", channels))
	}
	tonic, ok := tonicArg(args, 3)
	if !ok {
		return makeErrorResponse(ErrorInvalidArgs, "tonic must be a positive number")
	}

	samples, err := readFloats(audioDataJS, "audioArray")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	if len(samples) == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray is empty")
	}
	if channels == 2 {
		samples = stereoToMono(samples)
	}

	cfg := pitch.DefaultConfig()
	cfg.Workers = 1
	tracker, err := pitch.New(cfg)
	if err != nil {
		return makeErrorResponse(ErrorPitchTracking, err.Error())
	}
	frames, err := tracker.Track(context.Background(), samples, sampleRate)
	if err != nil {
		return makeErrorResponse(ErrorPitchTracking, fmt.Sprintf("Pitch tracking failed: %v", err))
	}

	seg := segment.New(segment.WithFrameDuration(float64(cfg.HopLength) / float64(sampleRate)))
	return transcribe(seg, frames, tonic)
}

// sargamTranscribeFrames transcribes pitch frames tracked by the caller.
// Arguments: frequencies, voicing, hopSeconds, tonic (0 or omitted for the
// default Sa). Frame i is at i*hopSeconds.
// Returns: {error: number, data: {swarams, raaga} | string}
func sargamTranscribeFrames(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected at least 3 arguments: frequencies, voicing, hopSeconds[, tonic]")
	}
	if args[0].Type() != js.TypeObject || args[1].Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "frequencies and voicing must be arrays")
	}
	if args[2].Type() != js.TypeNumber || !(args[2].Float() > 0) {
		return makeErrorResponse(ErrorInvalidArgs, "hopSeconds must be a positive number")
	}
	tonic, ok := tonicArg(args, 3)
	if !ok {
		return makeErrorResponse(ErrorInvalidArgs, "tonic must be a positive number")
	}

	freqs, err := readFloats(args[0], "frequencies")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	voicing, err := readFloats(args[1], "voicing")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	if len(freqs) != len(voicing) {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("frequencies (%d) and voicing (%d) differ in length", len(freqs), len(voicing)))
	}

	hop := args[2].Float()
	frames := make([]models.PitchFrame, len(freqs))
	for i := range frames {
		frames[i] = models.PitchFrame{Time: float64(i) * hop, Frequency: freqs[i], Voicing: voicing[i]}
	}

	return transcribe(segment.New(segment.WithFrameDuration(hop)), frames, tonic)
}

func transcribe(seg *segment.Segmenter, frames []models.PitchFrame, tonic float64) js.Value {
	events, err := seg.Segment(frames, tonic)
	if err != nil {
		return makeErrorResponse(ErrorSegmentation, err.Error())
	}

	var match *models.RaagaMatch
	if len(events) > 0 {
		if match, err = matcher.Match(events); err != nil {
			return makeErrorResponse(ErrorRaagaDetection, err.Error())
		}
	}

	data := js.Global().Get("Object").New()
	data.Set("tonic", tonic)
	data.Set("swarams", eventsToJS(events))
	data.Set("raaga", matchToJS(match))

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func tonicArg(args []js.Value, i int) (float64, bool) {
	if len(args) <= i || args[i].IsUndefined() || args[i].IsNull() {
		return defaultTonic, true
	}
	if args[i].Type() != js.TypeNumber {
		return 0, false
	}
	v := args[i].Float()
	if v == 0 {
		return defaultTonic, true
	}
	return v, v > 0
}

func readFloats(v js.Value, name string) ([]float64, error) {
	n := v.Length()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		el := v.Index(i)
		if el.Type() != js.TypeNumber {
			return nil, fmt.Errorf("%s element %d is not a number", name, i)
		}
		out[i] = el.Float()
	}
	return out, nil
}

func eventsToJS(events []models.NoteEvent) js.Value {
	arr := js.Global().Get("Array").New()
	for i, e := range events {
		obj := js.Global().Get("Object").New()
		obj.Set("start", e.Start)
		obj.Set("end", e.End)
		obj.Set("swaram", string(e.Swaram))
		obj.Set("octave", string(e.Octave))
		if e.Gamakam != "" {
			obj.Set("gamakam", string(e.Gamakam))
		}
		obj.Set("confidence", e.Confidence)
		arr.SetIndex(i, obj)
	}
	return arr
}

func matchToJS(m *models.RaagaMatch) js.Value {
	if m == nil {
		return js.Null()
	}
	obj := js.Global().Get("Object").New()
	obj.Set("name", m.Name)
	obj.Set("type", string(m.Tradition))
	obj.Set("confidence", m.Confidence)
	obj.Set("arohana", patternToJS(m.Arohana))
	obj.Set("avarohana", patternToJS(m.Avarohana))
	obj.Set("characteristics", m.Description)
	return obj
}

func patternToJS(p []models.SwaramName) js.Value {
	arr := js.Global().Get("Array").New()
	for i, s := range p {
		arr.SetIndex(i, string(s))
	}
	return arr
}

func stereoToMono(stereo []float64) []float64 {
	if len(stereo)%2 != 0 {
		stereo = stereo[:len(stereo)-1]
	}

	mono := make([]float64, len(stereo)/2)
	for i := range mono {
		mono[i] = (stereo[i*2] + stereo[i*2+1]) / 2.0
	}
	return mono
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	logf := func(method, msg string) {
		if !console.IsUndefined() {
			console.Call(method, msg)
		}
	}

	logf("log", "Sargam WASM module initializing...")

	done := make(chan struct{})

	js.Global().Set("sargamTranscribe", js.FuncOf(sargamTranscribe))
	js.Global().Set("sargamTranscribeFrames", js.FuncOf(sargamTranscribeFrames))
	logf("log", "sargamTranscribe and sargamTranscribeFrames registered")

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
		logf("log", "wasmReady event dispatched")
	} else {
		logf("error", "window object is undefined")
	}

	<-done
}
