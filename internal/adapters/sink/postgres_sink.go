package sink

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/decode"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/measure"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
)

// PostgresSink lands measurement results and decoded frame summaries for each
// consumed capture. Inserts are idempotent via ON CONFLICT DO NOTHING, so a
// redelivered capture does not duplicate rows.
type PostgresSink struct {
	db         *sql.DB
	measTable  string
	frameTable string
	engine     *measure.Engine
	decoders   []decode.Decoder
}

// NewPostgresSink writes into the two named tables. Decoders are optional;
// each runs over every consumed capture, and a decoder whose assigned channel
// is absent from a capture is skipped for that capture.
func NewPostgresSink(db *sql.DB, measTable, frameTable string, decoders ...decode.Decoder) *PostgresSink {
	return &PostgresSink{
		db:         db,
		measTable:  measTable,
		frameTable: frameTable,
		engine:     measure.New(),
		decoders:   decoders,
	}
}

func (p *PostgresSink) Name() string { return "postgres" }

func (p *PostgresSink) Consume(c *domain.Capture) error {
	if err := p.writeMeasurements(c); err != nil {
		return err
	}
	return p.writeFrames(c)
}

func (p *PostgresSink) writeMeasurements(c *domain.Capture) error {
	var results []domain.MeasurementResult
	for _, ch := range c.Channels {
		if !ch.Enabled {
			continue
		}
		r, err := p.engine.Run(c, ch.Index, measure.Gate{})
		if err != nil {
			return fmt.Errorf("measure channel %d: %w", ch.Index, err)
		}
		results = append(results, r...)
	}
	if len(results) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.measTable)
	b.WriteString(" (captured_at, channel, kind, value, unit, region_start, region_end, err) VALUES ")

	args := make([]any, 0, len(results)*8)
	for i, r := range results {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4,
			len(args)+5, len(args)+6, len(args)+7, len(args)+8))
		args = append(args,
			c.CreatedAt,
			r.Channel,
			string(r.Kind),
			r.Value,
			r.Unit,
			r.RegionStart,
			r.RegionEnd,
			r.Err,
		)
	}
	b.WriteString(" ON CONFLICT (captured_at, channel, kind) DO NOTHING")

	_, err := p.db.Exec(b.String(), args...)
	return err
}

func (p *PostgresSink) writeFrames(c *domain.Capture) error {
	var frames []domain.DecodedFrame
	for _, d := range p.decoders {
		f, err := d.Decode(c)
		if errors.Is(err, decode.ErrChannelMissing) {
			continue
		}
		if err != nil {
			return fmt.Errorf("decode %s: %w", d.Protocol(), err)
		}
		frames = append(frames, f...)
	}
	if len(frames) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.frameTable)
	b.WriteString(" (captured_at, protocol, start_idx, end_idx, payload, valid, annotation, err) VALUES ")

	args := make([]any, 0, len(frames)*8)
	for i, f := range frames {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4,
			len(args)+5, len(args)+6, len(args)+7, len(args)+8))
		args = append(args,
			c.CreatedAt,
			string(f.Protocol),
			f.Start,
			f.End,
			f.Payload,
			f.Valid,
			f.Annotation,
			f.Err,
		)
	}
	b.WriteString(" ON CONFLICT (captured_at, protocol, start_idx) DO NOTHING")

	_, err := p.db.Exec(b.String(), args...)
	return err
}

var _ ports.CaptureSink = (*PostgresSink)(nil)
