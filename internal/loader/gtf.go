package loader

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/peakenrich/internal/genome"
)

// GTFLoader loads genes from GENCODE GTF files. Exons come from the
// Ensembl canonical transcript, or the longest transcript when no
// transcript is tagged.
type GTFLoader struct {
	path     string
	biotypes map[string]bool
	logger   *zap.Logger
}

// NewGTFLoader creates a new GTF loader.
func NewGTFLoader(path string) *GTFLoader {
	return &GTFLoader{path: path, logger: zap.NewNop()}
}

// SetBiotypes restricts loading to genes of the given gene_type values.
func (l *GTFLoader) SetBiotypes(types []string) {
	l.biotypes = make(map[string]bool, len(types))
	for _, t := range types {
		l.biotypes[t] = true
	}
}

// SetLogger sets the logger for the loader.
func (l *GTFLoader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Load reads the GTF file into a frozen annotation.
func (l *GTFLoader) Load() (*genome.Annotation, error) {
	rc, err := open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer rc.Close()
	return l.Read(rc)
}

// gtfFeature represents a parsed GTF line.
type gtfFeature struct {
	chrom       string
	featureType string
	start       int64 // 1-based inclusive, as in the file
	end         int64
	strand      string
	attributes  map[string]string
}

type gtfTranscript struct {
	geneID    string
	canonical bool
	exons     []genome.Exon
	length    int64
}

// Read parses GTF content.
func (l *GTFLoader) Read(reader io.Reader) (*genome.Annotation, error) {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	genes := make(map[string]*genome.Gene)
	transcripts := make(map[string]*gtfTranscript)
	skipped := 0

	for scanner.Scan() {
		line := scanner.Text()

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		feat, err := parseGTFLine(line)
		if err != nil {
			skipped++
			continue
		}

		geneID := stripVersion(feat.attributes["gene_id"])
		if geneID == "" {
			continue
		}
		if l.biotypes != nil && !l.biotypes[feat.attributes["gene_type"]] {
			continue
		}

		switch feat.featureType {
		case "gene":
			genes[geneID] = &genome.Gene{
				ID:          geneID,
				Symbol:      feat.attributes["gene_name"],
				Chrom:       feat.chrom,
				Start:       feat.start - 1,
				End:         feat.end,
				Strand:      parseStrand(feat.strand),
				Mappability: 1,
			}

		case "transcript":
			id := stripVersion(feat.attributes["transcript_id"])
			t := transcriptFor(transcripts, id, geneID)
			t.canonical = strings.Contains(feat.attributes["tag"], "Ensembl_canonical")

		case "exon":
			id := stripVersion(feat.attributes["transcript_id"])
			if id == "" {
				continue
			}
			t := transcriptFor(transcripts, id, geneID)
			t.exons = append(t.exons, genome.Exon{Start: feat.start - 1, End: feat.end})
			t.length += feat.end - feat.start + 1
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}
	if skipped > 0 {
		l.logger.Warn("skipped malformed GTF lines", zap.Int("lines", skipped))
	}

	// Pick one transcript per gene in ID order so ties resolve the same way
	// on every run.
	ids := make([]string, 0, len(transcripts))
	for id := range transcripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	best := make(map[string]*gtfTranscript)
	for _, id := range ids {
		t := transcripts[id]
		cur, ok := best[t.geneID]
		if !ok || (t.canonical && !cur.canonical) || (t.canonical == cur.canonical && t.length > cur.length) {
			best[t.geneID] = t
		}
	}

	ann := genome.NewAnnotation()
	for _, g := range genes {
		if t, ok := best[g.ID]; ok {
			exons := t.exons
			sort.Slice(exons, func(i, j int) bool { return exons[i].Start < exons[j].Start })
			g.Exons = exons
		}
		if err := ann.AddGene(g); err != nil {
			return nil, fmt.Errorf("load GTF: %w", err)
		}
	}
	l.logger.Info("loaded GTF genes", zap.String("path", l.path), zap.Int("genes", ann.GeneCount()))
	return ann.Freeze(), nil
}

func transcriptFor(m map[string]*gtfTranscript, id, geneID string) *gtfTranscript {
	t, ok := m[id]
	if !ok {
		t = &gtfTranscript{geneID: geneID}
		m[id] = t
	}
	return t
}

// parseGTFLine parses a single GTF line.
func parseGTFLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}

	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	return &gtfFeature{
		chrom:       genome.NormalizeChrom(fields[0]),
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		attributes:  parseAttributes(fields[8]),
	}, nil
}

// parseAttributes parses GTF attribute column.
// Format: key "value"; key "value"; ...
// Repeated keys such as tag are joined with commas.
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}

		key := part[:idx]
		value := strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")
		if prev, ok := attrs[key]; ok {
			value = prev + "," + value
		}
		attrs[key] = value
	}

	return attrs
}

// stripVersion removes the version suffix from Ensembl IDs (ENSG00000141510.17).
func stripVersion(id string) string {
	if i := strings.LastIndexByte(id, '.'); i > 0 && strings.HasPrefix(id, "ENS") {
		return id[:i]
	}
	return id
}
