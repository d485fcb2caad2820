package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/formintake/formintake/internal/common"
	"github.com/formintake/formintake/internal/document"
)

// DocAIConfig locates one Document AI processor.
type DocAIConfig struct {
	ProjectID   string
	Location    string // e.g. "us", "eu"
	ProcessorID string

	// CredentialsFile is a service-account JSON path; empty means ambient
	// application-default credentials.
	CredentialsFile string

	// Endpoint overrides the regional default, mostly for tests.
	Endpoint string

	// Timeout bounds one ProcessDocument call, default 120s.
	Timeout time.Duration

	// RawDocumentPath, when set, receives the raw wire document as JSON
	// after every successful call; NewReplay reads it back.
	RawDocumentPath string
}

func (c DocAIConfig) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("%s-documentai.googleapis.com:443", c.Location)
}

// ProcessorPath is the fully qualified processor resource name.
func (c DocAIConfig) ProcessorPath() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		c.ProjectID, c.Location, c.ProcessorID)
}

// DocAI fetches extraction results from a Google Cloud Document AI
// processor.
type DocAI struct {
	cfg    DocAIConfig
	client *documentai.DocumentProcessorClient
	logger *slog.Logger
}

// NewDocAI dials the regional Document AI endpoint. Close releases the
// connection.
func NewDocAI(ctx context.Context, cfg DocAIConfig, logger *slog.Logger) (*DocAI, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	opts := []option.ClientOption{option.WithEndpoint(cfg.endpoint())}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, classifyRemote(fmt.Sprintf("connect %s", cfg.endpoint()), err)
	}
	return &DocAI{cfg: cfg, client: client, logger: logger}, nil
}

func (s *DocAI) Close() error {
	return s.client.Close()
}

// Fetch submits one document for synchronous processing.
func (s *DocAI) Fetch(ctx context.Context, req Request) (*document.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: s.cfg.ProcessorPath(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  req.Content,
				MimeType: req.MimeType,
			},
		},
	})
	if err != nil {
		return nil, classifyRemote(fmt.Sprintf("process document via %s", s.cfg.ProcessorPath()), err)
	}

	doc := resp.GetDocument()
	if s.cfg.RawDocumentPath != "" {
		s.dumpRaw(doc)
	}

	result := FromProto(doc)
	s.logger.Info("source.docai.ok",
		"processor", s.cfg.ProcessorPath(),
		"mime_type", req.MimeType,
		"pages", len(result.Pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// dumpRaw captures the wire document as protojson for offline debugging and
// replay. Failures are logged, never fatal.
func (s *DocAI) dumpRaw(doc *documentaipb.Document) {
	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(doc)
	if err == nil {
		err = os.WriteFile(s.cfg.RawDocumentPath, data, 0o644)
	}
	if err != nil {
		s.logger.Warn("source.docai.dump_failed", "path", s.cfg.RawDocumentPath, "error", err)
		return
	}
	s.logger.Info("source.docai.dump_ok", "path", s.cfg.RawDocumentPath, "bytes", len(data))
}

// classifyRemote maps transport errors onto the fault taxonomy:
// authentication, network, or remote processing. All are fatal; callers
// never retry.
func classifyRemote(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return common.NetworkFault(msg, err)
	}
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return common.AuthenticationFault(msg, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return common.NetworkFault(msg, err)
	default:
		return common.RemoteServiceFault(msg, err)
	}
}
