package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"exegesis/internal/domain"
)

// ErrInvalidCorpus is returned when the corpus file lacks its root key.
var ErrInvalidCorpus = errors.New("invalid corpus: \"bhagavad_gita\" key not found")

type corpusFile struct {
	Groups []groupJSON `json:"bhagavad_gita"`
}

type groupJSON struct {
	Chapter int         `json:"chapter"`
	Verses  []entryJSON `json:"verses"`
}

type entryJSON struct {
	Verse           int                       `json:"verse"`
	Shloka          string                    `json:"shloka"`
	Transliteration string                    `json:"transliteration"`
	Translations    map[string]string         `json:"translations"`
	WordMeaning     map[string]string         `json:"word_meaning"`
	Commentaries    map[string]commentaryJSON `json:"commentaries"`
}

type commentaryJSON struct {
	Status           string `json:"status"`
	OriginalAuthor   string `json:"original_author"`
	SubstituteAuthor string `json:"substitute_author"`
	Text             string `json:"text"`
}

// Load reads and indexes the corpus file at path.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a corpus document and builds the knowledge store. Entries
// without a group or index are skipped, as is evidence that is missing or empty.
func Parse(r io.Reader) (*Store, error) {
	var raw corpusFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	if len(raw.Groups) == 0 {
		return nil, ErrInvalidCorpus
	}

	s := &Store{
		targets:  make(map[string]domain.TargetEntity),
		concepts: make(map[string]domain.ConceptEntity),
		evidence: make(map[string]domain.EvidenceItem),
		byTarget: make(map[string][]domain.EvidenceItem),
	}
	schools := make(map[string]struct{})
	authors := make(map[string]struct{})

	for _, g := range raw.Groups {
		if g.Chapter == 0 {
			continue
		}
		for _, v := range g.Verses {
			if v.Verse == 0 {
				continue
			}
			id := TargetID(g.Chapter, v.Verse)
			if _, dup := s.targets[id]; dup {
				continue
			}
			target := domain.TargetEntity{
				ID:              id,
				Group:           g.Chapter,
				Index:           v.Verse,
				Text:            NormalizeText(v.Shloka),
				Transliteration: NormalizeText(v.Transliteration),
				Translations:    normalizeMap(v.Translations),
				Glosses:         normalizeMap(v.WordMeaning),
			}
			s.targets[id] = target
			s.targetOrder = append(s.targetOrder, id)

			for _, term := range sortedKeys(target.Glosses) {
				s.addMention(term, target.Glosses[term], id)
			}

			for _, school := range sortedKeys(v.Commentaries) {
				item := evidenceFrom(id, NormalizeText(school), v.Commentaries[school])
				if !item.Usable() {
					continue
				}
				s.evidence[item.ID] = item
				s.evidenceOrder = append(s.evidenceOrder, item.ID)
				s.byTarget[id] = append(s.byTarget[id], item)
				schools[item.School] = struct{}{}
				if item.OriginalAuthor != "" {
					authors[item.OriginalAuthor] = struct{}{}
				}
				if item.SubstituteAuthor != "" {
					authors[item.SubstituteAuthor] = struct{}{}
				}
			}
		}
	}

	s.schools = sortedKeys(schools)
	s.authors = sortedKeys(authors)
	return s, nil
}

// TargetID builds the composite target key "group:index".
func TargetID(group, index int) string {
	return strconv.Itoa(group) + ":" + strconv.Itoa(index)
}

// EvidenceID builds the evidence key from its target and school.
func EvidenceID(targetID, school string) string {
	return targetID + "_" + school
}

// addMention appends targetID to the term's membership list. Lists only grow
// while the corpus loads.
func (s *Store) addMention(term, meaning, targetID string) {
	if term == "" {
		return
	}
	c, ok := s.concepts[term]
	if !ok {
		c = domain.ConceptEntity{Term: term, Meaning: meaning}
		s.conceptOrder = append(s.conceptOrder, term)
	}
	if n := len(c.MentionedIn); n > 0 && c.MentionedIn[n-1] == targetID {
		return
	}
	c.MentionedIn = append(c.MentionedIn, targetID)
	s.concepts[term] = c
}

func evidenceFrom(targetID, school string, c commentaryJSON) domain.EvidenceItem {
	return domain.EvidenceItem{
		ID:               EvidenceID(targetID, school),
		School:           school,
		Status:           parseStatus(c.Status),
		OriginalAuthor:   NormalizeText(c.OriginalAuthor),
		SubstituteAuthor: NormalizeText(c.SubstituteAuthor),
		Text:             NormalizeText(c.Text),
		TargetID:         targetID,
	}
}

func parseStatus(s string) domain.EvidenceStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "missing":
		return domain.StatusMissing
	case "substitute", "substituted":
		return domain.StatusSubstituted
	default:
		return domain.StatusPresent
	}
}

func normalizeMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		k = NormalizeText(k)
		if k == "" {
			continue
		}
		out[k] = NormalizeText(v)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
