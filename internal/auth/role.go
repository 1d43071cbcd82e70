package auth

import (
	"fmt"
	"strings"
)

// Role is the account role carried in access tokens.
type Role int

const (
	RoleUser Role = iota
	RoleRestaurantOwner
	RoleBanned
	RoleModerator
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleRestaurantOwner:
		return "RestaurantOwner"
	case RoleBanned:
		return "Banned"
	case RoleModerator:
		return "Moderator"
	case RoleAdmin:
		return "Admin"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "restaurantowner", "restaurant_owner":
		return RoleRestaurantOwner, nil
	case "banned":
		return RoleBanned, nil
	case "moderator":
		return RoleModerator, nil
	case "admin":
		return RoleAdmin, nil
	}
	return RoleUser, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if r < RoleUser || r > RoleAdmin {
		return nil, fmt.Errorf("unknown role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Action is a moderation step an operator can take on another account.
type Action string

const (
	ActionBanUser              Action = "ban_user"
	ActionUnbanUser            Action = "unban_user"
	ActionUnbanRestaurantOwner Action = "unban_restaurant_owner"
	ActionGrantModerator       Action = "grant_moderator"
	ActionRevokeModerator      Action = "revoke_moderator"
)

// AllowedActions lists what actor may do to an account holding target.
// ownsRestaurant picks which unban applies to a banned account.
func AllowedActions(actor, target Role, ownsRestaurant bool) []Action {
	if actor != RoleAdmin && actor != RoleModerator {
		return nil
	}

	var actions []Action
	switch target {
	case RoleBanned:
		if ownsRestaurant {
			actions = append(actions, ActionUnbanRestaurantOwner)
		} else {
			actions = append(actions, ActionUnbanUser)
		}
	case RoleUser, RoleRestaurantOwner:
		actions = append(actions, ActionBanUser)
	case RoleModerator:
		if actor == RoleAdmin {
			actions = append(actions, ActionRevokeModerator)
		}
	case RoleAdmin:
	}

	switch target {
	case RoleModerator, RoleAdmin:
	case RoleUser, RoleRestaurantOwner, RoleBanned:
		actions = append(actions, ActionGrantModerator)
	}
	return actions
}
