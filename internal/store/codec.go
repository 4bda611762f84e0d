package store

import (
	"encoding/json"
	"fmt"

	"github.com/amishk599/keymatch/internal/model"
)

func encodeKeywordJSON(k *model.Keyword) (synonyms, relevance []byte, err error) {
	syn := k.Synonyms
	if syn == nil {
		syn = []string{}
	}
	rel := k.IndustryRelevance
	if rel == nil {
		rel = map[string]float64{}
	}
	if synonyms, err = json.Marshal(syn); err != nil {
		return nil, nil, fmt.Errorf("encoding synonyms for %q: %w", k.Text, err)
	}
	if relevance, err = json.Marshal(rel); err != nil {
		return nil, nil, fmt.Errorf("encoding industry relevance for %q: %w", k.Text, err)
	}
	return synonyms, relevance, nil
}

func decodeKeywordJSON(k *model.Keyword, synonyms, relevance []byte) error {
	if len(synonyms) > 0 {
		if err := json.Unmarshal(synonyms, &k.Synonyms); err != nil {
			return fmt.Errorf("decoding synonyms for %q: %w", k.Text, err)
		}
	}
	if len(relevance) > 0 {
		if err := json.Unmarshal(relevance, &k.IndustryRelevance); err != nil {
			return fmt.Errorf("decoding industry relevance for %q: %w", k.Text, err)
		}
	}
	return nil
}
