package server

type Server struct {
	addr string
}

func (s *Server) Addr() string {
	return "tcp://" + s.addr
}

func New(addr string) *Server {
	return &Server{addr: addr}
}

func (s *Server) Close() error {
	return nil
}
