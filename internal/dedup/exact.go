// Package dedup removes duplicate articles in two passes: exact identity
// matching on DOI or normalized title+year, then semantic matching on
// embedding similarity.
package dedup

import (
	"github.com/helixir/systematic-review-service/internal/domain"
)

// Removal reason labels attached to dropped duplicates.
const (
	ReasonExactDOI       = "exact duplicate (DOI)"
	ReasonExactTitleYear = "exact duplicate (title+year)"
	ReasonSemantic       = "semantic duplicate"
)

// Exact removes articles whose identity key was already seen, keeping the
// first occurrence. Input order is preserved in both partitions, removed
// articles are annotated in place, and articles without an identity key
// are always kept. Running Exact on its own output is a no-op.
func Exact(articles []*domain.Article) (kept, removed []*domain.Article) {
	seen := make(map[string]struct{}, len(articles))

	for _, article := range articles {
		key := article.IdentityKey()
		if key == "" {
			kept = append(kept, article)
			continue
		}
		if _, dup := seen[key]; dup {
			if article.HasDOI() {
				article.RemovalReason = ReasonExactDOI
			} else {
				article.RemovalReason = ReasonExactTitleYear
			}
			removed = append(removed, article)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, article)
	}

	return kept, removed
}
