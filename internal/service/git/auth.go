package git

import (
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"

	flerrors "github.com/relicta-tech/flowline/internal/errors"
)

// AuthOptions carries the configured git credentials.
type AuthOptions struct {
	// Token is a personal access token for HTTPS remotes. Takes
	// precedence over Username/Password.
	Token string
	// Username and Password authenticate HTTPS remotes with basic auth.
	Username string
	Password string
	// SSHKeyPath points at a private key for SSH remotes. Takes
	// precedence over every HTTPS credential.
	SSHKeyPath string
}

// NewAuthMethod builds the transport auth for the configured credentials.
// Returns nil when no credentials are configured, leaving go-git to its
// ambient auth (ssh-agent, credential helpers on the CLI path).
func NewAuthMethod(opts AuthOptions) (transport.AuthMethod, error) {
	const op = "git.NewAuthMethod"

	switch {
	case opts.SSHKeyPath != "":
		keys, err := gitssh.NewPublicKeysFromFile("git", opts.SSHKeyPath, "")
		if err != nil {
			return nil, flerrors.GitWrap(err, op, "failed to load SSH key")
		}
		return keys, nil
	case opts.Token != "":
		// GitHub and GitLab accept a token as the basic-auth password
		// with any non-empty username.
		return &githttp.BasicAuth{Username: "flowline", Password: opts.Token}, nil
	case opts.Username != "" || opts.Password != "":
		return &githttp.BasicAuth{Username: opts.Username, Password: opts.Password}, nil
	default:
		return nil, nil
	}
}
