package document

import (
	"fmt"
	"strings"
)

// Splitter splits a document into chunks
type Splitter interface {
	Split(doc *Document) []*Document
}

// RecursiveTextSplitter splits text recursively, trying coarse
// separators first and falling back to finer ones.
type RecursiveTextSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewRecursiveTextSplitter creates a splitter with the default separator ladder
func NewRecursiveTextSplitter(chunkSize, chunkOverlap int) *RecursiveTextSplitter {
	return &RecursiveTextSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators: []string{
			"\n\n", // Paragraphs
			"\n",   // Lines
			". ",   // Sentences
			"! ",
			"? ",
			"; ",
			", ",
			" ", // Words
			"",  // Characters
		},
	}
}

// Split splits a document into chunk documents. Each chunk inherits the
// parent metadata and records its index, total and parent ID.
func (s *RecursiveTextSplitter) Split(doc *Document) []*Document {
	if doc == nil || doc.Content == "" {
		return []*Document{}
	}

	chunks := s.splitTextRecursive(doc.Content, s.Separators)
	documents := make([]*Document, 0, len(chunks))

	for i, chunk := range chunks {
		newDoc := doc.Clone()
		newDoc.Content = chunk
		newDoc.ID = fmt.Sprintf("%s_chunk_%d", doc.ID, i)
		newDoc.Metadata[MetadataChunkIndex] = i
		newDoc.Metadata[MetadataChunkTotal] = len(chunks)
		newDoc.Metadata[MetadataDocumentID] = doc.ID

		documents = append(documents, newDoc)
	}

	return documents
}

func (s *RecursiveTextSplitter) splitTextRecursive(text string, separators []string) []string {
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	if len(separators) == 0 {
		return s.splitByCharacter(text)
	}

	separator := separators[0]
	remainingSeparators := separators[1:]

	if separator == "" {
		return s.splitByCharacter(text)
	}

	var chunks []string
	parts := strings.Split(text, separator)
	currentChunk := ""

	for _, part := range parts {
		testChunk := currentChunk
		if testChunk != "" {
			testChunk += separator
		}
		testChunk += part

		if len(testChunk) > s.ChunkSize {
			if currentChunk != "" {
				chunks = append(chunks, strings.TrimSpace(currentChunk))
			}

			// A single oversized part recurses into finer separators
			if len(part) > s.ChunkSize {
				subChunks := s.splitTextRecursive(part, remainingSeparators)
				chunks = append(chunks, subChunks...)
				currentChunk = ""
			} else {
				if s.ChunkOverlap > 0 && len(currentChunk) > s.ChunkOverlap {
					overlap := currentChunk[len(currentChunk)-s.ChunkOverlap:]
					currentChunk = overlap + separator + part
				} else {
					currentChunk = part
				}
			}
		} else {
			currentChunk = testChunk
		}
	}

	if currentChunk != "" {
		chunks = append(chunks, strings.TrimSpace(currentChunk))
	}

	return chunks
}

func (s *RecursiveTextSplitter) splitByCharacter(text string) []string {
	result := make([]string, 0)
	runes := []rune(text)

	step := s.ChunkSize - s.ChunkOverlap
	if step < 1 {
		step = s.ChunkSize
	}

	for i := 0; i < len(runes); i += step {
		end := i + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[i:end])
		if strings.TrimSpace(chunk) != "" {
			result = append(result, chunk)
		}
	}

	return result
}
