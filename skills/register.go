package skills

import (
	"github.com/BaSui01/convskills/skill"
)

// Declarations builds the declarations of every order skill. Derived skills
// are declared after the skill they build on.
func Declarations(api OrderAPI) ([]*skill.Declaration, error) {
	lookup, err := skill.Declare(NewLookupOrder(api, LookupOptions{}).Definition())
	if err != nil {
		return nil, err
	}
	cancel, err := skill.Declare(NewCancelOrder(api).Definition(lookup))
	if err != nil {
		return nil, err
	}
	coupon, err := skill.Declare(NewApplyCoupon(api).Definition(lookup))
	if err != nil {
		return nil, err
	}
	search, err := skill.Declare(NewSearchOrders(api).Definition())
	if err != nil {
		return nil, err
	}
	recent, err := skill.Declare(NewMostRecentOrder(api).Definition(search))
	if err != nil {
		return nil, err
	}
	minimal, err := skill.Declare(Minimal{}.Definition())
	if err != nil {
		return nil, err
	}
	help, err := skill.Declare(OrderHelp{}.Definition())
	if err != nil {
		return nil, err
	}
	return []*skill.Declaration{minimal, lookup, cancel, coupon, search, recent, help}, nil
}

// Register declares the order skills and adds them to reg.
func Register(reg *skill.Registry, api OrderAPI) error {
	decls, err := Declarations(api)
	if err != nil {
		return err
	}
	return reg.Register(decls...)
}
