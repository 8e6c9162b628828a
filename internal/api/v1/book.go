package v1

import (
	"net/http"

	"github.com/Xunop/bookshelf/internal/http/request"
	"github.com/Xunop/bookshelf/internal/http/response"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/validator"
)

// partitionRoutes serves the collection routes of one partition. The shelf
// and the wishlist differ only in the partition they are bound to.
type partitionRoutes struct {
	handler   *Handler
	partition model.Partition
}

func (p *partitionRoutes) list(w http.ResponseWriter, r *http.Request) {
	query, err := validator.ValidateListQuery(p.partition, r.URL.Query())
	if err != nil {
		p.handler.handleError(w, r, err)
		return
	}

	page, err := p.handler.service.List(r.Context(), p.partition, request.GetIdentity(r), query)
	if err != nil {
		p.handler.handleError(w, r, err)
		return
	}
	response.OK(w, r, page)
}

func (p *partitionRoutes) add(w http.ResponseWriter, r *http.Request) {
	input, err := p.decodeEntry(r)
	if err != nil {
		p.handler.handleError(w, r, err)
		return
	}

	entry, err := p.handler.service.Add(r.Context(), p.partition, request.GetIdentity(r), input)
	if err != nil {
		p.handler.handleError(w, r, err)
		return
	}
	response.Created(w, r, entry)
}

func (p *partitionRoutes) get(w http.ResponseWriter, r *http.Request) {
	detail, err := p.handler.service.Get(r.Context(), p.partition, request.GetIdentity(r), request.RouteStringParam(r, "id"))
	if err != nil {
		p.handler.handleError(w, r, err)
		return
	}
	response.OK(w, r, detail)
}

func (p *partitionRoutes) update(w http.ResponseWriter, r *http.Request) {
	input, err := p.decodeEntry(r)
	if err != nil {
		p.handler.handleError(w, r, err)
		return
	}

	entry, err := p.handler.service.Update(r.Context(), p.partition, request.GetIdentity(r), request.RouteStringParam(r, "id"), input)
	if err != nil {
		p.handler.handleError(w, r, err)
		return
	}
	response.OK(w, r, entry)
}

func (p *partitionRoutes) delete(w http.ResponseWriter, r *http.Request) {
	if err := p.handler.service.Delete(r.Context(), p.partition, request.GetIdentity(r), request.RouteStringParam(r, "id")); err != nil {
		p.handler.handleError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

func (p *partitionRoutes) decodeEntry(r *http.Request) (*model.EntryInput, error) {
	var req model.EntryRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	return validator.ValidateEntryRequest(p.partition, &req)
}
