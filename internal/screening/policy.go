package screening

import (
	"sort"

	"github.com/helixir/systematic-review-service/internal/domain"
)

// Select applies the link-priority selection policy to scored articles.
//
// Articles with a usable link are preferred: they fill the target first at
// the relaxed urlFloor, because a reviewer can actually obtain them. The
// remaining slots go to unlinked articles at or above the stricter
// threshold. When both passes leave the target unfilled, the highest
// scoring leftovers fill the gap regardless of threshold, so a weak corpus
// still yields a ranked list instead of an empty one.
//
// Fewer candidates than target selects everything. The returned included
// set is sorted descending by similarity; ties keep input order.
func Select(articles []*domain.Article, target int, threshold, urlFloor float64) (included, excluded []*domain.Article) {
	if len(articles) == 0 {
		return nil, nil
	}
	if len(articles) <= target {
		included = append(included, articles...)
		sortBySimilarity(included)
		return included, nil
	}

	var linked, unlinked []*domain.Article
	for _, article := range articles {
		if article.HasUsableLink() {
			linked = append(linked, article)
		} else {
			unlinked = append(unlinked, article)
		}
	}
	sortBySimilarity(linked)
	sortBySimilarity(unlinked)

	selected := make(map[*domain.Article]struct{}, target)
	included = make([]*domain.Article, 0, target)

	take := func(candidates []*domain.Article, floor float64) {
		for _, article := range candidates {
			if len(included) >= target {
				return
			}
			if _, ok := selected[article]; ok {
				continue
			}
			if article.Similarity < floor {
				// Candidates are sorted descending; nothing further qualifies.
				return
			}
			selected[article] = struct{}{}
			included = append(included, article)
		}
	}

	take(linked, urlFloor)
	take(unlinked, threshold)

	if len(included) < target {
		// Similarity fallback over everything not yet selected.
		rest := make([]*domain.Article, 0, len(articles)-len(included))
		for _, article := range articles {
			if _, ok := selected[article]; !ok {
				rest = append(rest, article)
			}
		}
		sortBySimilarity(rest)
		take(rest, -1)
	}

	sortBySimilarity(included)

	for _, article := range articles {
		if _, ok := selected[article]; !ok {
			excluded = append(excluded, article)
		}
	}
	return included, excluded
}

func sortBySimilarity(articles []*domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Similarity > articles[j].Similarity
	})
}
