package devserver

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/taxbook/taxbook-go/api"
)

func (s *Server) handleCategoriesList(w http.ResponseWriter, r *http.Request) {
	var categories []api.Category
	s.store.withCategories(accountFrom(r).ID, func(cats map[int64]*api.Category, _ *int64) {
		for _, c := range cats {
			categories = append(categories, *c)
		}
	})
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	if categories == nil {
		categories = []api.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	var create api.CategoryCreate
	if !readJSON(w, r, &create) {
		return
	}
	if create.Name == "" {
		writeFieldErrors(w, map[string][]string{"name": {"Обязательное поле."}})
		return
	}
	if create.CategoryType != "income" && create.CategoryType != "expense" {
		writeFieldErrors(w, map[string][]string{"category_type": {"Допустимы только income и expense."}})
		return
	}

	var created api.Category
	s.store.withCategories(accountFrom(r).ID, func(cats map[int64]*api.Category, nextID *int64) {
		*nextID++
		created = api.Category{
			ID:           *nextID,
			Name:         create.Name,
			CategoryType: create.CategoryType,
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		}
		cats[created.ID] = &created
	})
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	var update api.CategoryUpdate
	if !readJSON(w, r, &update) {
		return
	}

	var updated *api.Category
	var system bool
	s.store.withCategories(accountFrom(r).ID, func(cats map[int64]*api.Category, _ *int64) {
		category, ok := cats[id]
		if !ok {
			return
		}
		if category.IsSystem {
			system = true
			return
		}
		if update.Name != nil {
			category.Name = *update.Name
		}
		if update.CategoryType != nil {
			category.CategoryType = *update.CategoryType
		}
		copied := *category
		updated = &copied
	})

	if system {
		writeDetail(w, http.StatusBadRequest, "Системные категории нельзя изменять")
		return
	}
	if updated == nil {
		writeDetail(w, http.StatusNotFound, "Категория не найдена")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	var found, system bool
	s.store.withCategories(accountFrom(r).ID, func(cats map[int64]*api.Category, _ *int64) {
		category, ok := cats[id]
		if !ok {
			return
		}
		if category.IsSystem {
			system = true
			return
		}
		delete(cats, id)
		found = true
	})

	if system {
		writeDetail(w, http.StatusBadRequest, "Системные категории нельзя удалять")
		return
	}
	if !found {
		writeDetail(w, http.StatusNotFound, "Категория не найдена")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransactionsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	var all []api.Transaction
	s.store.withTransactions(accountFrom(r).ID, func(txs map[int64]*api.Transaction, _ *int64) {
		for _, tx := range txs {
			if t := q.Get("transaction_type"); t != "" && tx.TransactionType != t {
				continue
			}
			if c := q.Get("category"); c != "" {
				id, _ := strconv.ParseInt(c, 10, 64)
				if tx.Category == nil || *tx.Category != id {
					continue
				}
			}
			if from := q.Get("date_from"); from != "" && tx.TransactionDate < from {
				continue
			}
			if to := q.Get("date_to"); to != "" && tx.TransactionDate > to {
				continue
			}
			all = append(all, *tx)
		}
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	count := len(all)
	if offset > count {
		offset = count
	}
	end := offset + limit
	if end > count {
		end = count
	}

	page := api.TransactionsPage{Count: count, Results: all[offset:end]}
	if page.Results == nil {
		page.Results = []api.Transaction{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTransactionCreate(w http.ResponseWriter, r *http.Request) {
	var create api.TransactionCreate
	if !readJSON(w, r, &create) {
		return
	}
	if create.Amount == "" {
		writeFieldErrors(w, map[string][]string{"amount": {"Обязательное поле."}})
		return
	}
	if create.TransactionType != "income" && create.TransactionType != "expense" {
		writeFieldErrors(w, map[string][]string{"transaction_type": {"Допустимы только income и expense."}})
		return
	}

	var categoryName *string
	if create.Category != nil {
		s.store.withCategories(accountFrom(r).ID, func(cats map[int64]*api.Category, _ *int64) {
			if c, ok := cats[*create.Category]; ok {
				name := c.Name
				categoryName = &name
			}
		})
	}

	var created api.Transaction
	s.store.withTransactions(accountFrom(r).ID, func(txs map[int64]*api.Transaction, nextID *int64) {
		*nextID++
		created = api.Transaction{
			ID:              *nextID,
			Amount:          create.Amount,
			TransactionType: create.TransactionType,
			Category:        create.Category,
			CategoryName:    categoryName,
			Description:     create.Description,
			TransactionDate: create.TransactionDate,
			CreatedAt:       time.Now().UTC().Format(time.RFC3339),
			PaymentMethod:   create.PaymentMethod,
			IsBusiness:      create.IsBusiness,
			IsTaxable:       create.IsTaxable,
			ActivityCode:    create.ActivityCode,
		}
		txs[created.ID] = &created
	})
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleTransactionDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	found := false
	s.store.withTransactions(accountFrom(r).ID, func(txs map[int64]*api.Transaction, _ *int64) {
		if _, ok := txs[id]; ok {
			delete(txs, id)
			found = true
		}
	})

	if !found {
		writeDetail(w, http.StatusNotFound, "Операция не найдена")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
