package document

// Document is a piece of text with metadata, the unit the ingestion
// pipeline splits, embeds and stores.
type Document struct {
	ID      string
	Content string

	Metadata Metadata
}

// Metadata contains document metadata
type Metadata map[string]any

// Common metadata keys
const (
	MetadataSource      = "source"       // Source file name
	MetadataText        = "text"         // Chunk text (stored alongside the vector)
	MetadataChunkIndex  = "chunk_index"  // Chunk index
	MetadataChunkTotal  = "chunk_total"  // Total chunks
	MetadataDocumentID  = "document_id"  // Parent document ID
	MetadataContentType = "content_type" // MIME type of the upload
	MetadataFileSize    = "file_size"    // File size in bytes
)

// NewDocument creates a new document
func NewDocument(content string) *Document {
	return &Document{
		Content:  content,
		Metadata: make(Metadata),
	}
}

// WithID sets the document ID
func (d *Document) WithID(id string) *Document {
	d.ID = id
	return d
}

// WithMetadata adds a metadata field
func (d *Document) WithMetadata(key string, value any) *Document {
	d.Metadata[key] = value
	return d
}

// Clone creates a deep copy of the document
func (d *Document) Clone() *Document {
	clone := &Document{
		ID:       d.ID,
		Content:  d.Content,
		Metadata: make(Metadata, len(d.Metadata)),
	}
	for k, v := range d.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}

// GetMetadataString safely retrieves a string metadata field
func (d *Document) GetMetadataString(key string) (string, bool) {
	if val, ok := d.Metadata[key]; ok {
		if str, ok := val.(string); ok {
			return str, true
		}
	}
	return "", false
}
