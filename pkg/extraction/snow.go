package extraction

import (
	"context"

	"porenet/internal/models"
	"porenet/pkg/errs"
	"porenet/pkg/network"
	"porenet/pkg/watershed"
)

// SnowExtractor runs SNOW segmentation followed by ExtractNetwork.
type SnowExtractor struct {
	Snow       watershed.SnowOptions
	Extraction Options
}

// NewSnowExtractor returns an extractor with default settings.
func NewSnowExtractor() *SnowExtractor {
	return &SnowExtractor{Snow: watershed.DefaultSnowOptions()}
}

var _ network.NetworkExtractor = (*SnowExtractor)(nil)

// Extract segments im (true = void) and builds its network. The context is
// checked between stages.
func (s *SnowExtractor) Extract(ctx context.Context, im *models.Binary) (*network.Network, error) {
	_, net, err := s.Segment(ctx, im)
	return net, err
}

// Segment is Extract that also returns the segmentation the network was
// built from.
func (s *SnowExtractor) Segment(ctx context.Context, im *models.Binary) (*watershed.SnowResult, *network.Network, error) {
	const op = "extraction.SnowExtractor"
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	res, err := watershed.Snow(im, s.Snow)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	opts := s.Extraction
	if opts.Logger == nil {
		opts.Logger = s.Snow.Logger
	}
	if opts.DistanceField == nil && s.Snow.Mask == nil && len(s.Snow.Distance.Periodic) == 0 {
		opts.DistanceField = res.DistanceField
	}
	net, err := ExtractNetwork(res.Regions, opts)
	if err != nil {
		return nil, nil, err
	}
	if err := net.CheckSchema(); err != nil {
		return nil, nil, errs.Wrap(errs.DegenerateGeometry, op, err)
	}
	return res, net, nil
}
