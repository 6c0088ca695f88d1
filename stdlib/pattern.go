// This file is part of glua.
//
// Copyright 2024 The glua Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Lua patterns are not regular expressions (no alternation, no general
// grouping repetition) — they are their own small grammar: character
// classes (%a, %d, %s, ...), sets ([...]), the greedy/lazy/optional
// quantifiers * + - ?, anchors ^ $, captures (...), position captures (),
// back-references %1-%9, balanced-match %bxy and frontier %f[set] (spec
// §13 "string.find/match/gmatch/gsub"). Go's regexp package implements a
// different grammar entirely, so string.find/match/gmatch/gsub are backed
// by this from-scratch matcher instead, built from general Lua pattern
// semantics rather than ported from any single reference (the one pattern
// implementation in the retrieved corpus, src/lib/stringlib.cpp, only
// supports literal substrings by its own admission).
package stdlib

import (
	"errors"

	"github.com/dbrn/glua/vm"
)

const maxCaptures = 32

// capLen sentinels: a non-negative capLen is an ordinary closed capture's
// byte length; these two mark the two special states.
const (
	capUnfinished = -1 // "(" seen, matching ")" not yet seen
	capPosition   = -2 // "()" position capture: stores an offset, not a span
)

type capture struct {
	start int
	len   int
}

type matchState struct {
	src   string
	pat   string
	level int
	caps  [maxCaptures]capture
	depth int
}

const maxMatchDepth = 220

var (
	errMalformedPattern  = errors.New("malformed pattern")
	errPatternTooComplex = errors.New("pattern too complex")
	errInvalidCapture    = errors.New("invalid pattern capture")
)

// classEnd returns the pattern index just past the single character class
// starting at pi: a literal byte, a %-class, or a bracketed [...] set.
func classEnd(p string, pi int) (int, error) {
	c := p[pi]
	pi++
	switch c {
	case '%':
		if pi >= len(p) {
			return 0, errMalformedPattern
		}
		return pi + 1, nil
	case '[':
		if pi < len(p) && p[pi] == '^' {
			pi++
		}
		first := true
		for {
			if pi >= len(p) {
				return 0, errMalformedPattern
			}
			cc := p[pi]
			pi++
			switch {
			case cc == '%':
				if pi >= len(p) {
					return 0, errMalformedPattern
				}
				pi++
			case cc == ']' && !first:
				return pi, nil
			}
			first = false
		}
	default:
		return pi, nil
	}
}

func isDigitByte(c byte) bool { return c >= '0' && c <= '9' }
func isAlphaByte(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}
func isUpperByte(c byte) bool  { return c >= 'A' && c <= 'Z' }
func isLowerByte(c byte) bool  { return c >= 'a' && c <= 'z' }
func isAlnumByte(c byte) bool  { return isAlphaByte(c) || isDigitByte(c) }
func isCntrlByte(c byte) bool  { return c < 0x20 || c == 0x7f }
func isHexDigitByte(c byte) bool {
	return isDigitByte(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
func isPunctByte(c byte) bool {
	return c >= 0x21 && c <= 0x7e && !isAlnumByte(c)
}
func isPrintByte(c byte) bool { return c >= 0x20 && c < 0x7f }

// matchClassSingle tests c against one %-class letter (spec §13's class
// table); an uppercase class letter negates its lowercase counterpart.
func matchClassSingle(c, class byte) bool {
	var res bool
	switch class | 0x20 { // fold to lowercase for the switch, test case below
	case 'a':
		res = isAlphaByte(c)
	case 'd':
		res = isDigitByte(c)
	case 'l':
		res = isLowerByte(c)
	case 's':
		res = isSpaceByte(c)
	case 'u':
		res = isUpperByte(c)
	case 'w':
		res = isAlnumByte(c)
	case 'c':
		res = isCntrlByte(c)
	case 'p':
		res = isPunctByte(c)
	case 'x':
		res = isHexDigitByte(c)
	case 'g':
		res = isPrintByte(c) && c != ' '
	default:
		return class == c
	}
	if isUpperByte(class) {
		return !res
	}
	return res
}

// matchBracketClass tests c against a [...] set, p[pi:pe] being its
// contents (pe is the index of the closing ']', exclusive).
func matchBracketClass(c byte, p string, pi, pe int) bool {
	negate := false
	if pi < pe && p[pi] == '^' {
		negate = true
		pi++
	}
	found := false
	for pi < pe {
		switch {
		case p[pi] == '%':
			pi++
			if matchClassSingle(c, p[pi]) {
				found = true
			}
			pi++
		case pi+2 < pe && p[pi+1] == '-':
			if p[pi] <= c && c <= p[pi+2] {
				found = true
			}
			pi += 3
		default:
			if p[pi] == c {
				found = true
			}
			pi++
		}
	}
	return found != negate
}

func (ms *matchState) singleMatch(si, pi, ep int) bool {
	if si >= len(ms.src) {
		return false
	}
	c := ms.src[si]
	switch ms.pat[pi] {
	case '.':
		return true
	case '%':
		return matchClassSingle(c, ms.pat[pi+1])
	case '[':
		return matchBracketClass(c, ms.pat, pi+1, ep-1)
	default:
		return ms.pat[pi] == c
	}
}

// match attempts to match ms.pat[pi:] against ms.src starting at si,
// returning the index just past the match, or -1 if pi's pattern fails (not
// an error — ordinary backtracking). Captures are recorded into ms.caps as
// a side effect, rolled back on failed branches by startCapture/endCapture.
func (ms *matchState) match(si, pi int) (int, error) {
	ms.depth++
	defer func() { ms.depth-- }()
	if ms.depth > maxMatchDepth {
		return -1, errPatternTooComplex
	}
	if pi >= len(ms.pat) {
		return si, nil
	}
	switch ms.pat[pi] {
	case '(':
		if pi+1 < len(ms.pat) && ms.pat[pi+1] == ')' {
			return ms.startCapture(si, pi+2, capPosition)
		}
		return ms.startCapture(si, pi+1, capUnfinished)
	case ')':
		return ms.endCapture(si, pi+1)
	case '$':
		if pi+1 == len(ms.pat) {
			if si == len(ms.src) {
				return si, nil
			}
			return -1, nil
		}
	case '%':
		if pi+1 < len(ms.pat) {
			switch nc := ms.pat[pi+1]; {
			case nc == 'b':
				return ms.matchBalance(si, pi+2)
			case nc == 'f':
				pi2 := pi + 2
				if pi2 >= len(ms.pat) || ms.pat[pi2] != '[' {
					return -1, errMalformedPattern
				}
				return ms.matchFrontier(si, pi2)
			case isDigitByte(nc):
				return ms.matchCaptureRef(si, pi+2, int(nc-'0'))
			}
		}
	}
	return ms.matchSingleWithSuffix(si, pi)
}

func (ms *matchState) matchSingleWithSuffix(si, pi int) (int, error) {
	ep, err := classEnd(ms.pat, pi)
	if err != nil {
		return -1, err
	}
	matches := ms.singleMatch(si, pi, ep)
	var suffix byte
	if ep < len(ms.pat) {
		suffix = ms.pat[ep]
	}
	switch suffix {
	case '?':
		if matches {
			r, err := ms.match(si+1, ep+1)
			if err != nil {
				return -1, err
			}
			if r != -1 {
				return r, nil
			}
		}
		return ms.match(si, ep+1)
	case '*':
		return ms.maxExpand(si, pi, ep)
	case '+':
		if !matches {
			return -1, nil
		}
		return ms.maxExpand(si+1, pi, ep)
	case '-':
		return ms.minExpand(si, pi, ep)
	default:
		if !matches {
			return -1, nil
		}
		return ms.match(si+1, ep)
	}
}

func (ms *matchState) maxExpand(si, pi, ep int) (int, error) {
	n := 0
	for ms.singleMatch(si+n, pi, ep) {
		n++
	}
	for n >= 0 {
		r, err := ms.match(si+n, ep+1)
		if err != nil {
			return -1, err
		}
		if r != -1 {
			return r, nil
		}
		n--
	}
	return -1, nil
}

func (ms *matchState) minExpand(si, pi, ep int) (int, error) {
	for {
		r, err := ms.match(si, ep+1)
		if err != nil {
			return -1, err
		}
		if r != -1 {
			return r, nil
		}
		if ms.singleMatch(si, pi, ep) {
			si++
		} else {
			return -1, nil
		}
	}
}

func (ms *matchState) startCapture(si, pi, what int) (int, error) {
	if ms.level >= maxCaptures {
		return -1, errPatternTooComplex
	}
	ms.caps[ms.level] = capture{start: si, len: what}
	ms.level++
	r, err := ms.match(si, pi)
	if err != nil {
		return -1, err
	}
	if r == -1 {
		ms.level--
	}
	return r, nil
}

func (ms *matchState) endCapture(si, pi int) (int, error) {
	l := -1
	for i := ms.level - 1; i >= 0; i-- {
		if ms.caps[i].len == capUnfinished {
			l = i
			break
		}
	}
	if l < 0 {
		return -1, errInvalidCapture
	}
	ms.caps[l].len = si - ms.caps[l].start
	r, err := ms.match(si, pi)
	if err != nil {
		return -1, err
	}
	if r == -1 {
		ms.caps[l].len = capUnfinished
	}
	return r, nil
}

func (ms *matchState) matchCaptureRef(si, pi, idx int) (int, error) {
	l := idx - 1
	if l < 0 || l >= ms.level || ms.caps[l].len == capUnfinished {
		return -1, errInvalidCapture
	}
	clen := ms.caps[l].len
	cstart := ms.caps[l].start
	if len(ms.src)-si >= clen && ms.src[cstart:cstart+clen] == ms.src[si:si+clen] {
		return ms.match(si+clen, pi)
	}
	return -1, nil
}

func (ms *matchState) matchBalance(si, pi int) (int, error) {
	if pi+1 >= len(ms.pat) {
		return -1, errMalformedPattern
	}
	if si >= len(ms.src) || ms.src[si] != ms.pat[pi] {
		return -1, nil
	}
	b, e := ms.pat[pi], ms.pat[pi+1]
	cont := 1
	i := si + 1
	for i < len(ms.src) {
		if ms.src[i] == e {
			cont--
			if cont == 0 {
				return ms.match(i+1, pi+2)
			}
		} else if ms.src[i] == b {
			cont++
		}
		i++
	}
	return -1, nil
}

func (ms *matchState) matchFrontier(si, pi int) (int, error) {
	ep, err := classEnd(ms.pat, pi)
	if err != nil {
		return -1, err
	}
	var prev, cur byte
	if si > 0 {
		prev = ms.src[si-1]
	}
	if si < len(ms.src) {
		cur = ms.src[si]
	}
	if !matchBracketClass(prev, ms.pat, pi+1, ep-1) && matchBracketClass(cur, ms.pat, pi+1, ep-1) {
		return ms.match(si, ep)
	}
	return -1, nil
}

// captureValues resolves ms's captures (after a successful match spanning
// [s,e)) into Lua values: position captures become 1-based offsets, plain
// captures become substrings. Returns nil (not an empty, non-nil slice) for
// a pattern with no explicit captures, so callers can tell "no captures —
// use the whole match" apart from "one empty-string capture".
func (ms *matchState) captureValues(h *vm.Heap) []vm.Value {
	if ms.level == 0 {
		return nil
	}
	vals := make([]vm.Value, ms.level)
	for i := 0; i < ms.level; i++ {
		c := ms.caps[i]
		if c.len == capPosition {
			vals[i] = vm.Number(c.start + 1)
		} else {
			vals[i] = h.NewString([]byte(ms.src[c.start : c.start+c.len]))
		}
	}
	return vals
}

// patFind tries to match p against s starting no earlier than init,
// advancing the start position until it succeeds (or, if p is anchored
// with a leading '^', trying only at init). Returns start<0 for "no match".
func patFind(h *vm.Heap, s, p string, init int) (start, end int, caps []vm.Value, err error) {
	anchor := len(p) > 0 && p[0] == '^'
	pi0 := 0
	if anchor {
		pi0 = 1
	}
	si := init
	for {
		ms := &matchState{src: s, pat: p}
		e, mErr := ms.match(si, pi0)
		if mErr != nil {
			return 0, 0, nil, mErr
		}
		if e != -1 {
			return si, e, ms.captureValues(h), nil
		}
		si++
		if anchor || si > len(s) {
			return -1, -1, nil, nil
		}
	}
}
