package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/formintake/formintake/internal/common"
	"github.com/formintake/formintake/internal/document"
)

// Replay serves a previously captured wire document from disk, so the
// pipeline can run offline against the output of DocAIConfig.RawDocumentPath.
type Replay struct {
	path   string
	logger *slog.Logger
}

func NewReplay(path string, logger *slog.Logger) *Replay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replay{path: path, logger: logger}
}

// Fetch loads the captured document; the request bytes are ignored.
func (r *Replay) Fetch(_ context.Context, _ Request) (*document.Result, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, common.SourceFault(fmt.Sprintf("read captured document %s", r.path), err)
	}

	var doc documentaipb.Document
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(data, &doc); err != nil {
		return nil, common.SourceFault(fmt.Sprintf("decode captured document %s", r.path), err)
	}

	result := FromProto(&doc)
	r.logger.Info("source.replay.ok", "path", r.path, "pages", len(result.Pages))
	return result, nil
}
