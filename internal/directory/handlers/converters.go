package handlers

import (
	"math"
	"strconv"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"google.golang.org/protobuf/types/known/structpb"
)

// fields reads typed values out of a request field map. A key that is
// absent and a key set to null are told apart so partial updates can clear
// nullable references.
type fields map[string]*structpb.Value

func fieldsOf(s *structpb.Struct) fields {
	return fields(s.GetFields())
}

func (f fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f fields) isNull(key string) bool {
	v, ok := f[key]
	if !ok {
		return false
	}
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return null || v.GetKind() == nil
}

// str returns the string at key, or "" when it is absent or null.
func (f fields) str(key string) (string, error) {
	if !f.has(key) || f.isNull(key) {
		return "", nil
	}
	s, ok := f[key].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", e.Validation("%s must be a string", key)
	}
	return s.StringValue, nil
}

// optStr returns nil when key is absent or null.
func (f fields) optStr(key string) (*string, error) {
	if !f.has(key) || f.isNull(key) {
		return nil, nil
	}
	s, err := f.str(key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// id returns the positive integer at key, or 0 when it is absent or null.
// Numbers and numeric strings are accepted.
func (f fields) id(key string) (uint, error) {
	if !f.has(key) || f.isNull(key) {
		return 0, nil
	}
	return parseID(key, f[key])
}

// optID returns nil when key is absent or null.
func (f fields) optID(key string) (*uint, error) {
	if !f.has(key) || f.isNull(key) {
		return nil, nil
	}
	id, err := parseID(key, f[key])
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (f fields) ids(key string) ([]uint, error) {
	if !f.has(key) || f.isNull(key) {
		return nil, nil
	}
	list, ok := f[key].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, e.Validation("%s must be a list", key)
	}
	ids := make([]uint, 0, len(list.ListValue.GetValues()))
	for _, v := range list.ListValue.GetValues() {
		id, err := parseID(key, v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (f fields) sub(key string) (fields, error) {
	if !f.has(key) || f.isNull(key) {
		return fields{}, nil
	}
	s, ok := f[key].GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, e.Validation("%s must be an object", key)
	}
	return fieldsOf(s.StructValue), nil
}

func parseID(key string, v *structpb.Value) (uint, error) {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n < 1 || n > math.MaxUint32 || n != math.Trunc(n) {
			return 0, e.Validation("%s must be a positive integer", key)
		}
		return uint(n), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseUint(kind.StringValue, 10, 32)
		if err != nil || n == 0 {
			return 0, e.Validation("%s must be a positive integer", key)
		}
		return uint(n), nil
	default:
		return 0, e.Validation("%s must be a positive integer", key)
	}
}

func companyInputFrom(f fields) (*models.CompanyInput, error) {
	var (
		input models.CompanyInput
		err   error
	)
	if input.Name, err = f.str("name"); err != nil {
		return nil, err
	}
	if input.Email, err = f.str("email"); err != nil {
		return nil, err
	}
	if input.Phone, err = f.str("phone"); err != nil {
		return nil, err
	}
	if input.Description, err = f.optStr("description"); err != nil {
		return nil, err
	}
	status, err := f.str("status")
	if err != nil {
		return nil, err
	}
	input.Status = models.CompanyStatus(status)
	if input.RegionID, err = f.optID("region_id"); err != nil {
		return nil, err
	}
	if input.ServiceIDs, err = f.ids("service_ids"); err != nil {
		return nil, err
	}
	return &input, nil
}

func companyUpdateFrom(f fields) (*models.CompanyUpdate, error) {
	id, err := requireID(f)
	if err != nil {
		return nil, err
	}
	update := &models.CompanyUpdate{ID: id}
	if update.Name, err = f.optStr("name"); err != nil {
		return nil, err
	}
	if update.Email, err = f.optStr("email"); err != nil {
		return nil, err
	}
	if update.Phone, err = f.optStr("phone"); err != nil {
		return nil, err
	}
	if update.Description, err = f.optStr("description"); err != nil {
		return nil, err
	}
	status, err := f.optStr("status")
	if err != nil {
		return nil, err
	}
	if status != nil {
		s := models.CompanyStatus(*status)
		update.Status = &s
	}
	if f.has("region_id") {
		update.RegionSet = true
		if update.RegionID, err = f.optID("region_id"); err != nil {
			return nil, err
		}
	}
	if f.has("service_ids") {
		update.ServicesSet = true
		if update.ServiceIDs, err = f.ids("service_ids"); err != nil {
			return nil, err
		}
	}
	return update, nil
}

func userUpdateFrom(f fields) (*models.UserUpdate, error) {
	id, err := requireID(f)
	if err != nil {
		return nil, err
	}
	update := &models.UserUpdate{ID: id}
	if update.Username, err = f.optStr("username"); err != nil {
		return nil, err
	}
	if update.Email, err = f.optStr("email"); err != nil {
		return nil, err
	}
	role, err := f.optStr("role")
	if err != nil {
		return nil, err
	}
	if role != nil {
		r := models.Role(*role)
		update.Role = &r
	}
	if f.has("company_id") {
		update.CompanySet = true
		if update.CompanyID, err = f.optID("company_id"); err != nil {
			return nil, err
		}
	}
	return update, nil
}

func optUint(p *uint) any {
	if p == nil {
		return nil
	}
	return *p
}

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func companyMap(c *models.Company) map[string]any {
	var region any
	if c.Region != nil {
		region = map[string]any{"id": c.Region.ID, "name": c.Region.Name}
	}
	services := make([]any, 0, len(c.Services))
	for i := range c.Services {
		services = append(services, serviceMap(&c.Services[i]))
	}
	return map[string]any{
		"id":            c.ID,
		"name":          c.Name,
		"email":         c.Email,
		"phone":         c.Phone,
		"description":   optString(c.Description),
		"status":        string(c.Status),
		"user_id":       optUint(c.UserID),
		"login_user_id": optUint(c.LoginUserID),
		"region_id":     optUint(c.RegionID),
		"region":        region,
		"services":      services,
		"created_at":    c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func regionMap(r *models.Region) map[string]any {
	return map[string]any{
		"id":          r.ID,
		"name":        r.Name,
		"description": optString(r.Description),
	}
}

func locationMap(l *models.Location) map[string]any {
	return map[string]any{
		"id":        l.ID,
		"name":      l.Name,
		"region_id": l.RegionID,
	}
}

func serviceMap(s *models.Service) map[string]any {
	return map[string]any{
		"id":          s.ID,
		"name":        s.Name,
		"description": optString(s.Description),
	}
}

// userMap never includes the password hash.
func userMap(u *models.User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"role":       string(u.Role),
		"company_id": optUint(u.CompanyID),
		"created_at": u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func authMap(a *models.AuthResult) map[string]any {
	m := map[string]any{
		"user":  userMap(a.User),
		"token": a.Token,
	}
	if a.Company != nil {
		m["company"] = companyMap(a.Company)
	}
	return m
}

// listMap wraps items under key, converting each with conv.
func listMap[T any](key string, items []T, conv func(*T) map[string]any) map[string]any {
	list := make([]any, 0, len(items))
	for i := range items {
		list = append(list, conv(&items[i]))
	}
	return map[string]any{key: list}
}
