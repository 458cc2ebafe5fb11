package env

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/tidwall/gjson"
)

// DefaultProfilePath is where LoadProfile looks when no explicit path is
// given.
const DefaultProfilePath = "rconctl.json"

var ErrUnknownProfile = errors.New("Profile is not defined in the profile file")

// Profile is a named connection preset loaded from the profile file. Zero
// fields mean "not set" and fall through to the next config layer.
type Profile struct {
	Host     string
	Port     int
	Protocol string
	Password string
}

// LoadProfile reads a named profile from a JSON profile file of the shape
//
//   ```
//   {
//     "staging": {"host": "10.0.0.7", "port": 25575, "protocol": "source"},
//     "legacy":  {"host": "10.0.0.9", "protocol": "hyrcon", "password": "s3cret"}
//   }
//   ```
func LoadProfile(path, name string) (*Profile, error) {
	if path == "" {
		path = DefaultProfilePath
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("Profile file %s does not exist: %w", path, err)
		}
		return nil, err
	}

	entry := gjson.GetBytes(data, name)
	if !entry.Exists() {
		return nil, fmt.Errorf("Failed to load '%s': %w", name, ErrUnknownProfile)
	}

	return &Profile{
		Host:     entry.Get("host").String(),
		Port:     int(entry.Get("port").Int()),
		Protocol: entry.Get("protocol").String(),
		Password: entry.Get("password").String(),
	}, nil
}
