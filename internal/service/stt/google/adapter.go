// Package google provides a Google Cloud Speech-to-Text transcription adapter.
package google

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

// Config holds Google Speech settings.
type Config struct {
	Endpoint        string // regional endpoint, e.g. eu-speech.googleapis.com:443
	LanguageCode    string
	Model           string
	MinSpeakerCount int32
	MaxSpeakerCount int32
}

// DefaultConfig returns EU endpoint, Dutch, diarization for up to 6 speakers.
func DefaultConfig() Config {
	return Config{
		Endpoint:        "eu-speech.googleapis.com:443",
		LanguageCode:    "nl-NL",
		Model:           "latest_long",
		MinSpeakerCount: 1,
		MaxSpeakerCount: 6,
	}
}

type recognizeFunc func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)

// Adapter transcribes complete recordings with LongRunningRecognize.
// Requires application default credentials (GOOGLE_APPLICATION_CREDENTIALS).
type Adapter struct {
	cfg       Config
	client    *speech.Client
	recognize recognizeFunc
}

// New creates a Google STT adapter bound to the configured regional endpoint.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, apperr.Configurationf(apperr.StageTranscription, "create Google Speech client: %v", err)
	}

	a := &Adapter{cfg: cfg, client: c}
	a.recognize = func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := c.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	}
	return a, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "google"
}

// Close releases the gRPC connection.
func (a *Adapter) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// Transcribe sends the audio inline and waits for the operation to finish.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, mimeType string) (*models.TranscriptionResult, error) {
	enc, ok := encodingFor(mimeType)
	if !ok {
		return nil, apperr.Validationf("audio type %s is not supported by the google provider", mimeType)
	}

	resp, err := a.recognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   enc,
			LanguageCode:               a.cfg.LanguageCode,
			Model:                      a.cfg.Model,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
			DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
				EnableSpeakerDiarization: true,
				MinSpeakerCount:          a.cfg.MinSpeakerCount,
				MaxSpeakerCount:          a.cfg.MaxSpeakerCount,
			},
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, mapError(err)
	}

	return toResult(resp)
}

// toResult narrows the response. With diarization the last result repeats
// every word with its speaker tag; those words become the utterances.
func toResult(resp *speechpb.LongRunningRecognizeResponse) (*models.TranscriptionResult, error) {
	if resp == nil || len(resp.Results) == 0 {
		return nil, apperr.Empty(apperr.StageTranscription, "no transcription result received")
	}

	results := resp.Results
	last := results[len(results)-1]
	var diarized []*speechpb.WordInfo
	if len(last.Alternatives) > 0 && hasSpeakerTags(last.Alternatives[0].Words) {
		diarized = last.Alternatives[0].Words
		if len(results) > 1 {
			results = results[:len(results)-1]
		}
	}

	var parts []string
	var confSum float64
	var confN int
	var duration float64
	for _, r := range results {
		if end := r.GetResultEndTime(); end != nil {
			duration = max(duration, end.AsDuration().Seconds())
		}
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		if t := strings.TrimSpace(alt.Transcript); t != "" {
			parts = append(parts, t)
			confSum += float64(alt.Confidence)
			confN++
		}
	}
	if len(parts) == 0 {
		return nil, apperr.Empty(apperr.StageTranscription, "no transcription result received")
	}

	res := &models.TranscriptionResult{
		Transcript: strings.Join(parts, " "),
		Duration:   duration,
		Confidence: confSum / float64(confN),
		Utterances: groupBySpeaker(diarized),
	}
	if n := len(res.Utterances); n > 0 && res.Utterances[n-1].End > res.Duration {
		res.Duration = res.Utterances[n-1].End
	}
	return res, nil
}

func hasSpeakerTags(words []*speechpb.WordInfo) bool {
	for _, w := range words {
		if w.GetSpeakerTag() > 0 {
			return true
		}
	}
	return false
}

// groupBySpeaker joins consecutive words of the same speaker. Google speaker
// tags start at 1; utterance speakers start at 0.
func groupBySpeaker(words []*speechpb.WordInfo) []models.Utterance {
	var out []models.Utterance
	var cur *models.Utterance
	var text []string
	var curTag int32 = -1

	flush := func() {
		if cur != nil {
			cur.Transcript = strings.Join(text, " ")
			out = append(out, *cur)
		}
	}

	for _, w := range words {
		start := w.GetStartTime().AsDuration().Seconds()
		end := w.GetEndTime().AsDuration().Seconds()
		if tag := w.GetSpeakerTag(); cur == nil || tag != curTag {
			flush()
			speaker := int(tag) - 1
			cur = &models.Utterance{Start: start, End: end, Speaker: &speaker}
			text = text[:0]
			curTag = tag
		}
		cur.End = max(cur.End, end)
		text = append(text, w.GetWord())
	}
	flush()
	return out
}

// encodingFor maps an allowed MIME type to a recognition encoding.
func encodingFor(mimeType string) (speechpb.RecognitionConfig_AudioEncoding, bool) {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch mt {
	case "audio/wav", "audio/wave", "audio/x-wav":
		return speechpb.RecognitionConfig_LINEAR16, true
	case "audio/webm":
		return speechpb.RecognitionConfig_WEBM_OPUS, true
	case "audio/flac", "audio/x-flac":
		return speechpb.RecognitionConfig_FLAC, true
	case "audio/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS, true
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, false
	}
}

func mapError(err error) error {
	if e := apperr.FromContext(apperr.StageTranscription, err); e != nil {
		return e
	}
	st, ok := status.FromError(err)
	if !ok {
		return apperr.Upstream(apperr.StageTranscription, err)
	}
	switch st.Code() {
	case codes.DeadlineExceeded:
		return apperr.Timeout(apperr.StageTranscription, err)
	case codes.Canceled:
		return apperr.FromContext(apperr.StageTranscription, context.Canceled)
	}
	return apperr.Provider(apperr.StageTranscription, httpStatus(st.Code()),
		fmt.Sprintf("%s: %s", st.Code(), st.Message()))
}

func httpStatus(c codes.Code) int {
	switch c {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
