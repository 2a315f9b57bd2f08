//go:build windows

package service

import (
	"fmt"

	"golang.org/x/sys/windows/svc/mgr"
)

// Install registers the service with the service control manager.
func Install(opts InstallOptions) (string, error) {
	m, err := mgr.Connect()
	if err != nil {
		return "", fmt.Errorf("cannot connect to service control manager: %w", err)
	}
	defer m.Disconnect()

	if s, err := m.OpenService(opts.ServiceName); err == nil {
		s.Close()
		return opts.ServiceName, fmt.Errorf("service %s already exists", opts.ServiceName)
	}

	s, err := m.CreateService(opts.ServiceName, opts.Executable, mgr.Config{
		DisplayName: opts.DisplayName(),
		Description: "Redis server managed by redisvc",
		StartType:   mgr.StartAutomatic,
	}, opts.Args()...)
	if err != nil {
		return opts.ServiceName, fmt.Errorf("cannot create service %s: %w", opts.ServiceName, err)
	}
	defer s.Close()
	return opts.ServiceName, nil
}

// Remove deletes the service registration.
func Remove(opts InstallOptions) (string, error) {
	m, err := mgr.Connect()
	if err != nil {
		return "", fmt.Errorf("cannot connect to service control manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(opts.ServiceName)
	if err != nil {
		return opts.ServiceName, fmt.Errorf("service %s is not installed: %w", opts.ServiceName, err)
	}
	defer s.Close()
	if err := s.Delete(); err != nil {
		return opts.ServiceName, fmt.Errorf("cannot delete service %s: %w", opts.ServiceName, err)
	}
	return opts.ServiceName, nil
}
