package vectorstore

import "testing"

func TestFuseRankingsOrdersByScoreDescending(t *testing.T) {
	vec := []EmbeddingResult{{ID: 1, Source: "a"}, {ID: 2, Source: "b"}, {ID: 3, Source: "c"}}
	fts := []FTSResult{{ID: 2, Source: "b"}, {ID: 3, Source: "c"}}

	out := fuseRankings(vec, fts, 0)
	if len(out) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(out))
	}

	// id 2 is vector rank 2 and fts rank 1, id 3 is vector rank 3 and fts
	// rank 2, and id 1 is vector rank 1 but never appears in fts, so its
	// single-method score is below both documents found by both methods.
	for i := 1; i < len(out); i++ {
		if out[i-1].Score < out[i].Score {
			t.Fatalf("results not sorted descending by score: %+v", out)
		}
	}

	if out[len(out)-1].ID != 1 {
		t.Fatalf("expected id 1 (vector-only hit) to rank last, got %d", out[len(out)-1].ID)
	}
}

func TestFuseRankingsNullableRanks(t *testing.T) {
	vec := []EmbeddingResult{{ID: 1}}
	fts := []FTSResult{{ID: 2}}

	out := fuseRankings(vec, fts, 0)
	byID := map[int64]HybridResult{}
	for _, r := range out {
		byID[r.ID] = r
	}

	if byID[1].FTSRank != nil {
		t.Fatalf("expected id 1 to have a nil FTS rank, got %v", *byID[1].FTSRank)
	}
	if byID[2].VectorRank != nil {
		t.Fatalf("expected id 2 to have a nil vector rank, got %v", *byID[2].VectorRank)
	}
}

func TestFuseRankingsRespectsTopK(t *testing.T) {
	vec := []EmbeddingResult{{ID: 1}, {ID: 2}, {ID: 3}}
	out := fuseRankings(vec, nil, 2)
	if len(out) != 2 {
		t.Fatalf("expected topK=2 to truncate to 2 results, got %d", len(out))
	}
}
