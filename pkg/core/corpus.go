package core

// ImageRef locates one corpus image on disk. Name is the file's base name and
// doubles as the stable identity in per-image results.
type ImageRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Corpus is the ordered set of training images a run optimizes against. Order
// is fixed at load time (name-sorted) and shared by every evaluation, so
// per-image results line up across candidates.
type Corpus []ImageRef

// Names returns the image names in corpus order.
func (c Corpus) Names() []string {
	names := make([]string, len(c))
	for i, ref := range c {
		names[i] = ref.Name
	}
	return names
}
