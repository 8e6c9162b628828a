package validator

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Xunop/bookshelf/internal/model"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20

	otherNameMinLength = 4
	otherNameMaxLength = 30
)

// ValidateEntryRequest checks an add or update body for the given partition
// and returns the parsed values.
//
// The shelf requires a status and only accepts its own statuses. The wishlist
// accepts a missing status, and any known status when present.
func ValidateEntryRequest(p model.Partition, req *model.EntryRequest) (*model.EntryInput, error) {
	if req == nil {
		return nil, Errors{{Field: "body", Message: "Request body is required.", Location: "body"}}
	}

	trimmed := *req
	trimmed.BookKey = strings.TrimSpace(req.BookKey)
	if req.Status != nil {
		s := strings.TrimSpace(*req.Status)
		trimmed.Status = &s
	}
	if req.OtherName != nil {
		s := strings.TrimSpace(*req.OtherName)
		trimmed.OtherName = &s
	}
	if req.Date != nil {
		s := strings.TrimSpace(*req.Date)
		trimmed.Date = &s
	}

	errs := Errors{}
	statusGiven := trimmed.Status != nil && *trimmed.Status != ""
	if !p.Wishlist && !statusGiven {
		errs.add("body", "status", "Status is required.", nil)
		// The tag check would only repeat the message for an empty value.
		trimmed.Status = nil
	}
	if p.Wishlist && !statusGiven {
		trimmed.Status = nil
	}
	if trimmed.OtherName != nil && *trimmed.OtherName == "" {
		errs.add("body", "other_name", "Name cannot be blank.", *req.OtherName)
		trimmed.OtherName = nil
	}
	errs = append(errs, validateStruct(&trimmed)...)

	if trimmed.OtherName != nil && *trimmed.OtherName != "" {
		if n := utf8.RuneCountInString(*trimmed.OtherName); n < otherNameMinLength || n > otherNameMaxLength {
			errs.add("body", "other_name", "Name must be between 4 and 30 characters.", *trimmed.OtherName)
		}
	}

	input := &model.EntryInput{BookKey: trimmed.BookKey}
	if trimmed.Status != nil {
		if status, err := model.ParseStatus(*trimmed.Status); err == nil {
			if !p.Wishlist && !p.Contains(status) {
				errs.add("body", "status", "Invalid status.", *trimmed.Status)
			}
			input.Status = &status
		}
	}
	if trimmed.OtherName != nil {
		input.OtherName = *trimmed.OtherName
	}
	if trimmed.Date != nil {
		if d, err := model.ParseDate(*trimmed.Date); err == nil {
			input.Date = &d
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return input, nil
}

// ValidateListQuery parses listing filters. Status and owner are ignored on
// the wishlist, page and limit silently fall back to their defaults.
func ValidateListQuery(p model.Partition, values url.Values) (*model.ListQuery, error) {
	errs := Errors{}
	query := &model.ListQuery{
		Title:  values.Get("title"),
		Author: values.Get("author"),
		Page:   positiveIntOrDefault(values.Get("page"), DefaultPage),
		Limit:  positiveIntOrDefault(values.Get("limit"), DefaultLimit),
	}

	if !p.Wishlist {
		query.Owner = values.Get("owner")
		if raw, ok := values["status"]; ok {
			if len(raw) > 1 {
				errs.add("query", "status", "Status must be a single query parameter.", raw)
			} else {
				for _, part := range strings.Split(raw[0], ",") {
					part = strings.TrimSpace(part)
					if part == "" {
						continue
					}
					status, err := model.ParseStatus(part)
					if err != nil {
						errs.add("query", "status", "Status query values must be valid status values.", raw[0])
						break
					}
					query.Statuses = append(query.Statuses, status)
				}
			}
		}
	}

	var ok bool
	if !p.Wishlist {
		if query.OwnerSort, ok = parseSort(values, "owner_sort"); !ok {
			errs.add("query", "owner_sort", "Sort value must be 'asc' or 'desc'.", values.Get("owner_sort"))
		}
	}
	if query.TitleSort, ok = parseSort(values, "title_sort"); !ok {
		errs.add("query", "title_sort", "Sort value must be 'asc' or 'desc'.", values.Get("title_sort"))
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return query, nil
}

func parseSort(values url.Values, name string) (model.SortOrder, bool) {
	if _, present := values[name]; !present {
		return model.SortNone, true
	}
	switch v := values.Get(name); model.SortOrder(v) {
	case model.SortAsc, model.SortDesc:
		return model.SortOrder(v), true
	}
	return model.SortNone, false
}

func positiveIntOrDefault(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
