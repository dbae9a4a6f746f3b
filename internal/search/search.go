// Package search - поиск службы поддержки: пользователи, заказы и бизнесы по одной строке.
package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"marketadmin/internal/activity"
	"marketadmin/internal/apperr"
	"marketadmin/internal/constants"
	"marketadmin/internal/docstore"
	"marketadmin/internal/models"
	"marketadmin/internal/session"
	"marketadmin/internal/utils"
)

// scanLimit - сколько последних документов коллекции просматривается при поиске по имени.
const scanLimit = 2000

// Request - строка поиска и окно дат для заказов (today, 7d, 30d, all).
type Request struct {
	Query  string `json:"q" validate:"required,min=2,max=100"`
	Window string `json:"window" validate:"omitempty,oneof=today 7d 30d all"`
}

// UserHit - найденный пользователь и его последние заказы.
type UserHit struct {
	User         models.User    `json:"user"`
	RecentOrders []models.Order `json:"recentOrders"`
}

type Result struct {
	Query      string            `json:"query"`
	Users      []UserHit         `json:"users"`
	Orders     []models.Order    `json:"orders"`
	Businesses []models.Business `json:"businesses"`
}

type kind int

const (
	byName kind = iota
	byPhone
	byPostalCode
	byEmail
)

// matcher - разобранная строка поиска.
type matcher struct {
	raw    string
	kind   kind
	phones []string
}

func parse(q string) matcher {
	q = strings.TrimSpace(q)
	m := matcher{raw: q}
	switch {
	case utils.LooksLikePostalCode(q):
		m.kind = byPostalCode
	case utils.LooksLikePhone(q):
		m.kind = byPhone
		m.phones = utils.PhoneVariants(q)
		// Номер мог быть сохранен в исходном виде.
		m.phones = append(m.phones, q)
	case strings.Contains(q, "@"):
		m.kind = byEmail
		m.raw = strings.ToLower(q)
	}
	return m
}

type Service struct {
	store docstore.Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewService(store docstore.Store, log *logrus.Logger) *Service {
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Search ищет параллельно по пользователям, заказам (orders и shop_orders) и бизнесам.
// Результаты без повторов, не больше SearchResultLimit в каждом наборе.
func (s *Service) Search(ctx context.Context, admin session.Admin, req Request) (Result, error) {
	const op = "search.Search"
	if !admin.Role.AtLeast(models.RoleAdmin) {
		return Result{}, apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	q := strings.TrimSpace(req.Query)
	if len([]rune(q)) < 2 {
		return Result{}, apperr.ValidationFields(op, map[string]string{"q": "минимум 2 символа"})
	}
	since, err := activity.WindowStart(req.Window, s.now())
	if err != nil {
		return Result{}, apperr.ValidationFields(op, map[string]string{"window": err.Error()})
	}

	m := parse(q)
	res := Result{Query: q}
	g, gctx := errgroup.WithContext(ctx)
	var users []models.User
	g.Go(func() error {
		var err error
		users, err = s.users(gctx, m)
		return err
	})
	g.Go(func() error {
		var err error
		res.Orders, err = s.orders(gctx, m, since)
		return err
	})
	g.Go(func() error {
		var err error
		res.Businesses, err = s.businesses(gctx, m)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.WithError(err).WithField("query", utils.MaskPhone(q)).Error("Ошибка поиска")
		return Result{}, apperr.Remote(op, err)
	}

	res.Users = make([]UserHit, len(users))
	rg, rctx := errgroup.WithContext(ctx)
	rg.SetLimit(5)
	for i, u := range users {
		res.Users[i].User = u
		rg.Go(func() error {
			recent, err := s.recentOrders(rctx, u)
			res.Users[i].RecentOrders = recent
			return err
		})
	}
	if err := rg.Wait(); err != nil {
		s.log.WithError(err).Error("Ошибка получения последних заказов пользователей")
		return Result{}, apperr.Remote(op, err)
	}
	return res, nil
}

func (s *Service) users(ctx context.Context, m matcher) ([]models.User, error) {
	docs, err := s.match(ctx, constants.COLLECTION_USERS, m, "phone", "postalCode", "email", time.Time{},
		func(doc docstore.Document) bool {
			return matchesName(m.raw, str(doc, "firstName")+" "+str(doc, "lastName"))
		})
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll[models.User](docs)
}

func (s *Service) businesses(ctx context.Context, m matcher) ([]models.Business, error) {
	docs, err := s.match(ctx, constants.COLLECTION_BUSINESSES, m, "phone", "postalCode", "email", time.Time{},
		func(doc docstore.Document) bool {
			return matchesName(m.raw, str(doc, "name"))
		})
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll[models.Business](docs)
}

func (s *Service) orders(ctx context.Context, m matcher, since time.Time) ([]models.Order, error) {
	var all []docstore.Document
	for _, collection := range []string{constants.COLLECTION_ORDERS, constants.COLLECTION_SHOP_ORDERS} {
		docs, err := s.match(ctx, collection, m, "customerPhone", "postalCode", "customerEmail", since,
			func(doc docstore.Document) bool {
				return matchesName(m.raw, str(doc, "customerName"))
			})
		if err != nil {
			return nil, err
		}
		// Номер заказа ищется при любом виде строки: "10432" похож и на индекс.
		numbered, err := s.store.Find(ctx, docstore.Query{
			Collection: collection,
			Filters:    []docstore.Filter{docstore.Where("orderNumber", docstore.OpEq, strings.ToUpper(m.raw))},
			Limit:      constants.SearchResultLimit,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, numbered...)
		all = append(all, docs...)
	}
	orders, err := docstore.DecodeAll[models.Order](dedupe(all))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if len(orders) > constants.SearchResultLimit {
		orders = orders[:constants.SearchResultLimit]
	}
	return orders, nil
}

// match выбирает документы коллекции: по телефону, индексу и email - точным запросом,
// по имени - просмотром последних документов.
func (s *Service) match(ctx context.Context, collection string, m matcher, phoneField, postalField, emailField string, since time.Time, byNameFn func(docstore.Document) bool) ([]docstore.Document, error) {
	q := docstore.Query{Collection: collection, OrderBy: "createdAt", Desc: true}
	if !since.IsZero() {
		q.Filters = append(q.Filters, docstore.Where("createdAt", docstore.OpGte, since))
	}
	switch m.kind {
	case byPhone:
		q.Filters = append(q.Filters, docstore.Where(phoneField, docstore.OpIn, m.phones))
		q.Limit = constants.SearchResultLimit
	case byPostalCode:
		q.Filters = append(q.Filters, docstore.Where(postalField, docstore.OpEq, m.raw))
		q.Limit = constants.SearchResultLimit
	case byEmail:
		q.Filters = append(q.Filters, docstore.Where(emailField, docstore.OpEq, m.raw))
		q.Limit = constants.SearchResultLimit
	default:
		q.Limit = scanLimit
	}
	docs, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if m.kind == byName {
		docs = filterDocs(docs, byNameFn)
	}
	return dedupe(docs), nil
}

func filterDocs(docs []docstore.Document, fn func(docstore.Document) bool) []docstore.Document {
	out := make([]docstore.Document, 0, len(docs))
	for _, doc := range docs {
		if fn(doc) {
			out = append(out, doc)
			if len(out) == constants.SearchResultLimit {
				break
			}
		}
	}
	return out
}

func (s *Service) recentOrders(ctx context.Context, u models.User) ([]models.Order, error) {
	var docs []docstore.Document
	for _, collection := range []string{constants.COLLECTION_ORDERS, constants.COLLECTION_SHOP_ORDERS} {
		filters := [][]docstore.Filter{{docstore.Where("customerId", docstore.OpEq, u.ID)}}
		if variants := utils.PhoneVariants(u.Phone); len(variants) > 0 {
			filters = append(filters, []docstore.Filter{docstore.Where("customerPhone", docstore.OpIn, variants)})
		}
		for _, f := range filters {
			found, err := s.store.Find(ctx, docstore.Query{
				Collection: collection,
				Filters:    f,
				OrderBy:    "createdAt",
				Desc:       true,
				Limit:      constants.RecentOrdersPerUser,
			})
			if err != nil {
				return nil, err
			}
			docs = append(docs, found...)
		}
	}
	orders, err := docstore.DecodeAll[models.Order](dedupe(docs))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if len(orders) > constants.RecentOrdersPerUser {
		orders = orders[:constants.RecentOrdersPerUser]
	}
	return orders, nil
}

func matchesName(query, name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	for _, word := range strings.Fields(query) {
		if !utils.ContainsFolded(name, word) {
			return false
		}
	}
	return true
}

func dedupe(docs []docstore.Document) []docstore.Document {
	seen := make(map[string]bool, len(docs))
	out := docs[:0]
	for _, doc := range docs {
		id := doc.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, doc)
	}
	return out
}

func str(doc docstore.Document, key string) string {
	v, _ := doc[key].(string)
	return v
}
