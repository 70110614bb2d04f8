package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/inodb/peakenrich/internal/errs"
)

// GENCODE FTP URLs
const (
	gencodeHumanURL = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human/release_46"
	gencodeMouseURL = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_mouse/release_M25"
)

// gencodeFiles maps genomes with a GENCODE release to their GTF file.
var gencodeFiles = map[string]string{
	"hg38": gencodeHumanURL + "/gencode.v46.annotation.gtf.gz",
	"hg19": gencodeHumanURL + "/GRCh37_mapping/gencode.v46lift37.annotation.gtf.gz",
	"mm10": gencodeMouseURL + "/gencode.vM25.annotation.gtf.gz",
}

// gencodeGenomes lists genomes that can be downloaded, sorted.
func gencodeGenomes() []string {
	out := make([]string, 0, len(gencodeFiles))
	for g := range gencodeFiles {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// gencodeURL returns the GTF URL for a genome.
func gencodeURL(genome string) (string, error) {
	u, ok := gencodeFiles[genome]
	if !ok {
		return "", errs.Preconditionf("no GENCODE annotation for genome %q (available: %v)", genome, gencodeGenomes())
	}
	return u, nil
}

func newDownloadCmd() *cobra.Command {
	var (
		genome    string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download GENCODE gene annotations",
		Long: `Download the GENCODE GTF for a genome. Later enrich runs for the same
genome use it when neither --annotation nor --gtf is given.`,
		Example: `  peakenrich download --genome hg38
  peakenrich download --genome mm10 --output /data/gencode`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, genome, outputDir)
		},
	}
	cmd.Flags().StringVar(&genome, "genome", "hg38", fmt.Sprintf("Genome build: %v", gencodeGenomes()))
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: ~/.peakenrich/)")
	return cmd
}

func runDownload(cmd *cobra.Command, genome, outputDir string) error {
	url, err := gencodeURL(genome)
	if err != nil {
		return err
	}
	if outputDir == "" {
		outputDir = defaultDataDir()
		if outputDir == "" {
			return fmt.Errorf("cannot determine home directory")
		}
	}

	destDir := filepath.Join(outputDir, genome)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", destDir, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Downloading GENCODE annotation for %s...\n", genome)
	fmt.Fprintf(out, "Destination: %s\n\n", destDir)

	if err := downloadFile(out, url, filepath.Join(destDir, filepath.Base(url))); err != nil {
		return fmt.Errorf("downloading GTF: %w", err)
	}

	fmt.Fprintf(out, "\nDownload complete!\n")
	fmt.Fprintf(out, "To test gene sets, run:\n")
	fmt.Fprintf(out, "  peakenrich enrich --genome %s --peaks peaks.bed --genesets sets.tsv\n", genome)
	return nil
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(out io.Writer, url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(out, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(out, "  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 30 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := &progressWriter{out: out, total: resp.ContentLength, lastPrint: time.Now()}
	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(out, "\n    Done: %s\n", formatSize(pw.downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", formatSize(pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}
	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// findGENCODEFile looks for a downloaded GTF for genome under dir.
func findGENCODEFile(dir, genome string) (string, bool) {
	if dir == "" {
		return "", false
	}
	u, ok := gencodeFiles[genome]
	if !ok {
		return "", false
	}
	path := filepath.Join(dir, genome, filepath.Base(u))
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
