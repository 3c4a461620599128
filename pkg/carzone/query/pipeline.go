package query

import (
	"context"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
)

// Stats returns count, lowest, median and highest price of listings.
func Stats(listings []dal.Listing) dal.PriceStats {
	if len(listings) == 0 {
		return dal.PriceStats{}
	}
	sorted := MergeSort(listings)
	n := len(sorted)
	return dal.PriceStats{
		Count:   n,
		Lowest:  sorted[0].Price,
		Median:  sorted[n/2].Price,
		Highest: sorted[n-1].Price,
	}
}

// Comparables picks up to limit listings priced within 10% of price, cheapest
// first, keeping one listing per maker and model.
func Comparables(ctx context.Context, listings []dal.Listing, price int64, limit int) []dal.Listing {
	if limit <= 0 || len(listings) == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := ctx.Done()

	sorted := MergeSort(listings)
	stream := take(done, distinctModel(done, priceBand(done, generator(done, sorted), price)), limit)

	var out []dal.Listing
	for l := range stream {
		out = append(out, l)
	}
	return out
}

func generator(done <-chan struct{}, listings []dal.Listing) <-chan dal.Listing {
	stream := make(chan dal.Listing)
	go func() {
		defer close(stream)
		for _, l := range listings {
			select {
			case <-done:
				return
			case stream <- l:
			}
		}
	}()
	return stream
}

func priceBand(done <-chan struct{}, in <-chan dal.Listing, price int64) <-chan dal.Listing {
	out := make(chan dal.Listing)
	go func() {
		defer close(out)
		for l := range in {
			if !withinBand(l.Price, price) {
				continue
			}
			select {
			case <-done:
				return
			case out <- l:
			}
		}
	}()
	return out
}

func withinBand(candidate, price int64) bool {
	return candidate*10 >= price*9 && candidate*10 <= price*11
}

func distinctModel(done <-chan struct{}, in <-chan dal.Listing) <-chan dal.Listing {
	out := make(chan dal.Listing)
	go func() {
		defer close(out)
		seen := make(map[[2]string]struct{})
		for l := range in {
			key := [2]string{l.Maker, l.Model}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			select {
			case <-done:
				return
			case out <- l:
			}
		}
	}()
	return out
}

func take(done <-chan struct{}, in <-chan dal.Listing, n int) <-chan dal.Listing {
	out := make(chan dal.Listing)
	go func() {
		defer close(out)
		for i := 0; i < n; i++ {
			l, ok := <-in
			if !ok {
				return
			}
			select {
			case <-done:
				return
			case out <- l:
			}
		}
	}()
	return out
}

// MergeSort returns listings ordered by ascending price. Equal prices keep
// their input order.
func MergeSort(listings []dal.Listing) []dal.Listing {
	if len(listings) <= 1 {
		return listings
	}

	middle := len(listings) / 2
	left := MergeSort(listings[:middle])
	right := MergeSort(listings[middle:])
	return merge(left, right)
}

func merge(left, right []dal.Listing) []dal.Listing {
	result := make([]dal.Listing, 0, len(left)+len(right))
	for len(left) > 0 && len(right) > 0 {
		if right[0].Price < left[0].Price {
			result = append(result, right[0])
			right = right[1:]
		} else {
			result = append(result, left[0])
			left = left[1:]
		}
	}
	result = append(result, left...)
	return append(result, right...)
}
