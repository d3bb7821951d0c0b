package history

import (
	"math"
	"sort"
)

// Weights tunes relevance scoring of non-anchor candidates.
type Weights struct {
	// RecencyWeight scales the decay term 0.5^(age/HalfLife), where age is
	// the number of newer messages in the window.
	RecencyWeight float64
	HalfLife      float64
	// ReplyChainBonus is added to messages linked by replies to the trigger.
	ReplyChainBonus float64
	// AddressedBonus is added to messages replying to the requester.
	AddressedBonus float64
	// RequesterBonus is added to messages sent by the requester.
	RequesterBonus float64
}

// DefaultWeights keep the decay term below 1 so a reply-chain message always
// outranks an unrelated one, and a reply to the requester outranks an
// unrelated message of the same age.
var DefaultWeights = Weights{
	RecencyWeight:   1.0,
	HalfLife:        8,
	ReplyChainBonus: 1.5,
	AddressedBonus:  1.0,
	RequesterBonus:  0.5,
}

type scoreComponents struct {
	recency   float64
	chain     float64
	addressed float64
	requester float64
}

func (s scoreComponents) Total() float64 {
	return s.recency + s.chain + s.addressed + s.requester
}

// scorer holds the reply graph of one window.
type scorer struct {
	w       Weights
	req     Request
	byID    map[int64]Message
	inChain map[int64]bool
}

func newScorer(w Weights, req Request, window []Message) *scorer {
	s := &scorer{
		w:       w,
		req:     req,
		byID:    make(map[int64]Message, len(window)),
		inChain: make(map[int64]bool, len(window)),
	}
	for _, m := range window {
		s.byID[m.ID] = m
	}

	// ancestors of the trigger
	roots := map[int64]bool{}
	if req.TriggerMessageID != 0 {
		roots[req.TriggerMessageID] = true
	}
	for id, hops := req.TriggerReplyToID, 0; id != 0 && !roots[id] && hops <= len(window); hops++ {
		roots[id] = true
		m, ok := s.byID[id]
		if !ok {
			break
		}
		id = m.ReplyToID
	}

	// descendants: messages whose reply links reach a root
	for _, m := range window {
		if roots[m.ID] {
			s.inChain[m.ID] = true
			continue
		}
		visited := map[int64]bool{m.ID: true}
		for id := m.ReplyToID; id != 0 && !visited[id]; {
			if roots[id] || s.inChain[id] {
				s.inChain[m.ID] = true
				break
			}
			visited[id] = true
			parent, ok := s.byID[id]
			if !ok {
				break
			}
			id = parent.ReplyToID
		}
	}
	return s
}

// score rates m, where age counts newer messages in the window.
func (s *scorer) score(m Message, age int) scoreComponents {
	var sc scoreComponents

	halfLife := s.w.HalfLife
	if halfLife <= 0 {
		halfLife = 1
	}
	sc.recency = s.w.RecencyWeight * math.Pow(0.5, float64(age)/halfLife)

	if s.inChain[m.ID] {
		sc.chain = s.w.ReplyChainBonus
	}
	if s.req.RequesterID != 0 && m.ReplyToID != 0 {
		if parent, ok := s.byID[m.ReplyToID]; ok && parent.SenderID == s.req.RequesterID && m.SenderID != s.req.RequesterID {
			sc.addressed = s.w.AddressedBonus
		}
	}
	if s.req.RequesterID != 0 && m.SenderID == s.req.RequesterID {
		sc.requester = s.w.RequesterBonus
	}
	return sc
}

type scored struct {
	msg   Message
	index int
	score float64
}

// selectTop picks up to slots candidates by score, ties going to the more
// recent message. candidates is chronological and windowLen is the length of
// the full window the candidates came from (candidates are its prefix).
func (s *scorer) selectTop(candidates []Message, windowLen, slots int) []Message {
	if slots <= 0 || len(candidates) == 0 {
		return nil
	}

	all := make([]scored, len(candidates))
	for i, m := range candidates {
		all[i] = scored{msg: m, index: i, score: s.score(m, windowLen-1-i).Total()}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score == all[j].score {
			return all[i].index > all[j].index
		}
		return all[i].score > all[j].score
	})

	if slots > len(all) {
		slots = len(all)
	}
	out := make([]Message, 0, slots)
	for _, sc := range all[:slots] {
		out = append(out, sc.msg)
	}
	return out
}
