package graph

import (
	"github.com/graphql-go/graphql"

	"github.com/sandeepkv93/otp-account-service/internal/domain"
)

func userField(resolve func(u *domain.User) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		u, ok := p.Source.(*domain.User)
		if !ok || u == nil {
			return nil, nil
		}
		return resolve(u), nil
	}
}

// NewSchema builds the account API. Mutation arguments are all required
// strings; validation of their content happens in the service.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: userField(func(u *domain.User) any { return int(u.ID) }),
			},
			"email": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: userField(func(u *domain.User) any { return u.Email }),
			},
			"isVerified": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Boolean),
				Resolve: userField(func(u *domain.User) any { return u.IsVerified }),
			},
			"role": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: userField(func(u *domain.User) any { return u.Role }),
			},
		},
	})

	authPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthPayload",
		Fields: graphql.Fields{
			"token": &graphql.Field{
				Type:        graphql.String,
				Description: "Session token. Null after registration until the account is verified.",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					payload, _ := p.Source.(*authPayload)
					if payload == nil || payload.Token == "" {
						return nil, nil
					}
					return payload.Token, nil
				},
			},
			"user": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					payload, _ := p.Source.(*authPayload)
					if payload == nil {
						return nil, nil
					}
					return payload.User, nil
				},
			},
		},
	})

	credentials := graphql.FieldConfigArgument{
		"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type:        userType,
				Description: "The account behind the bearer token, or null if it no longer exists.",
				Resolve:     r.Me,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"register": &graphql.Field{
				Type:    graphql.NewNonNull(authPayloadType),
				Args:    credentials,
				Resolve: r.Register,
			},
			"login": &graphql.Field{
				Type:    graphql.NewNonNull(authPayloadType),
				Args:    credentials,
				Resolve: r.Login,
			},
			"verifyAccount": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Args: graphql.FieldConfigArgument{
					"email": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"otp":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.VerifyAccount,
			},
			"requestPasswordReset": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"email": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.RequestPasswordReset,
			},
			"resetPassword": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"token":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"newPassword": &graphql.ArgumentConfig{Type: graphql.String},
					"password": &graphql.ArgumentConfig{
						Type:        graphql.String,
						Description: "Deprecated: use newPassword.",
					},
				},
				Resolve: r.ResetPassword,
			},
			"registerUser": &graphql.Field{
				Type:              graphql.NewNonNull(authPayloadType),
				Args:              credentials,
				Resolve:           r.Register,
				DeprecationReason: "Use register.",
			},
			"loginUser": &graphql.Field{
				Type:              graphql.NewNonNull(authPayloadType),
				Args:              credentials,
				Resolve:           r.Login,
				DeprecationReason: "Use login.",
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
