// ABOUTME: DocumentProcessor loads documents and splits them into bounded overlapping chunks
// ABOUTME: Paragraph-first splitting with sentence and character-level fallbacks
package rag

import (
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/AustinKang666/jarvis-assistant/internal/models"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the redundancy carried across chunk boundaries
	DefaultChunkOverlap = 200
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	excessSpaces   = regexp.MustCompile(`\s{3,}`)
)

// supportedExtensions lists the file types the processor can load
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// DocumentProcessor splits raw document text into chunks with provenance metadata
type DocumentProcessor struct {
	chunkSize    int
	chunkOverlap int
}

// NewDocumentProcessor creates a processor. Non-positive size falls back to
// the default; overlap is clamped below the chunk size.
func NewDocumentProcessor(chunkSize, chunkOverlap int) *DocumentProcessor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &DocumentProcessor{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// ProcessFile loads a file and returns its chunks with metadata. Unreadable
// or unsupported files log a warning and return an empty slice, never an error.
func (p *DocumentProcessor) ProcessFile(path string) []models.Chunk {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		log.Printf("Warning: unsupported file type %q: %s", ext, path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Warning: cannot read file %s: %v", path, err)
		return nil
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		log.Printf("Warning: file is empty: %s", path)
		return nil
	}

	pieces := p.Chunk(text)
	chunks := make([]models.Chunk, 0, len(pieces))
	source := filepath.Base(path)
	for i, piece := range pieces {
		chunks = append(chunks, models.Chunk{
			Text: piece,
			Metadata: models.ChunkMetadata{
				Source:     source,
				ChunkID:    i,
				OriginPath: path,
			},
		})
	}
	return chunks
}

// ProcessDirectory walks a directory and processes every supported file
func (p *DocumentProcessor) ProcessDirectory(dir string) []models.Chunk {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Printf("Warning: not a directory: %s", dir)
		return nil
	}

	var all []models.Chunk
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			all = append(all, p.ProcessFile(path)...)
		}
		return nil
	})
	if err != nil {
		log.Printf("Warning: walking directory %s: %v", dir, err)
	}
	return all
}

// Chunk splits text into bounded pieces. Paragraphs are packed greedily up
// to the chunk size; oversized paragraphs fall back to sentence splitting,
// and oversized sentences to a character split with stride size-overlap.
// A second pass carries up to overlap leading characters of each chunk into
// the tail of its predecessor when the predecessor has room.
func (p *DocumentProcessor) Chunk(text string) []string {
	text = normalizeWhitespace(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	if len([]rune(text)) <= p.chunkSize {
		chunks = []string{text}
	} else {
		chunks = p.split(text)
	}

	chunks = p.applyOverlap(chunks)

	// Drop empty or whitespace-only chunks
	out := chunks[:0]
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (p *DocumentProcessor) split(text string) []string {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current string

	for _, para := range paragraphs {
		// Lengths are counted in runes so CJK text is not over-split
		if runeLen(current)+runeLen(para) <= p.chunkSize {
			if current != "" {
				current += "\n\n" + para
			} else {
				current = para
			}
			continue
		}

		if runeLen(para) > p.chunkSize {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}

			sentences := splitSentences(para)
			var temp string
			for _, sentence := range sentences {
				if sentence == "" {
					continue
				}
				if runeLen(temp)+runeLen(sentence) <= p.chunkSize {
					temp += sentence
					continue
				}
				if temp != "" {
					chunks = append(chunks, temp)
				}
				if runeLen(sentence) > p.chunkSize {
					chunks = append(chunks, p.hardSplit(sentence)...)
					temp = ""
				} else {
					temp = sentence
				}
			}
			if temp != "" {
				current = temp
			}
		} else {
			chunks = append(chunks, current)
			current = para
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// hardSplit cuts a sentence by character count using stride size-overlap
func (p *DocumentProcessor) hardSplit(sentence string) []string {
	runes := []rune(sentence)
	stride := p.chunkSize - p.chunkOverlap
	if stride <= 0 {
		stride = p.chunkSize
	}

	var pieces []string
	for start := 0; start < len(runes); start += stride {
		end := start + p.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return pieces
}

// applyOverlap prepends the head of chunk i+1 to the tail of chunk i when
// the result still fits within the chunk size
func (p *DocumentProcessor) applyOverlap(chunks []string) []string {
	if p.chunkOverlap <= 0 || len(chunks) <= 1 {
		return chunks
	}

	overlapped := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if i < len(chunks)-1 && runeLen(chunk)+p.chunkOverlap <= p.chunkSize {
			next := []rune(chunks[i+1])
			n := p.chunkOverlap
			if n > len(next) {
				n = len(next)
			}
			overlapped = append(overlapped, chunk+"\n"+string(next[:n]))
		} else {
			overlapped = append(overlapped, chunk)
		}
	}
	return overlapped
}

// normalizeWhitespace collapses 3+ newlines to 2 and 3+ whitespace runs to one space
func normalizeWhitespace(text string) string {
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = excessSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// sentenceTerminators covers both Latin and CJK terminal punctuation
var sentenceTerminators = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
}

// splitSentences cuts text after terminal punctuation, keeping the delimiter
func splitSentences(text string) []string {
	var sentences []string
	var current []rune
	for _, r := range text {
		current = append(current, r)
		if sentenceTerminators[r] {
			sentences = append(sentences, string(current))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		sentences = append(sentences, string(current))
	}
	return sentences
}

func runeLen(s string) int {
	return len([]rune(s))
}
